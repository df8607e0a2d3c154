/*
 * MIT License
 *
 * Copyright (c) 2025 bytefold contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package zip

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"hash"
	"io"

	"github.com/Ismail-elkorchi/bytefold/errs"
	"golang.org/x/crypto/pbkdf2"
)

const aesAuthCodeLen = 10

// aesKeyMaterial is the PBKDF2-HMAC-SHA1 output split into its three
// conventional slices, per the WinZip AES spec: encryption key, HMAC
// authentication key, and a 2-byte password verifier.
type aesKeyMaterial struct {
	encKey  []byte
	authKey []byte
	pwv     []byte
}

func deriveAESKeys(password, salt []byte, strength AESStrength) aesKeyMaterial {
	keyLen := strength.keyLen()
	out := pbkdf2.Key(password, salt, 1000, 2*keyLen+2, sha1.New)
	return aesKeyMaterial{
		encKey:  out[:keyLen],
		authKey: out[keyLen : 2*keyLen],
		pwv:     out[2*keyLen:],
	}
}

// aesCTRCounter implements the little-endian, start-at-1 128-bit counter
// WinZip AES uses in place of the usual big-endian CTR convention, so it
// cannot reuse crypto/cipher.NewCTR directly (that assumes a big-endian
// counter block) and instead drives crypto/aes's raw block cipher one
// block at a time.
type aesCTRCounter struct {
	block   cipher.Block
	counter uint64 // WinZip AES never needs more than 2^64 blocks in practice
	keystream []byte
	pos     int
}

func newAESCTRCounter(block cipher.Block) *aesCTRCounter {
	return &aesCTRCounter{block: block, counter: 1, keystream: make([]byte, aes.BlockSize), pos: aes.BlockSize}
}

func (c *aesCTRCounter) xor(dst, src []byte) {
	for i := range src {
		if c.pos == aes.BlockSize {
			var counterBlock [aes.BlockSize]byte
			// little-endian 64-bit counter in the low half, matching the
			// WinZip AES specification (not the NIST SP 800-38A default).
			v := c.counter
			for j := 0; j < 8; j++ {
				counterBlock[j] = byte(v)
				v >>= 8
			}
			c.block.Encrypt(c.keystream, counterBlock[:])
			c.counter++
			c.pos = 0
		}
		dst[i] = src[i] ^ c.keystream[c.pos]
		c.pos++
	}
}

// aesReader decrypts a WinZip AES entry's payload: salt + password
// verifier precede the ciphertext, and a trailing 10-byte HMAC-SHA1 tag
// authenticates it. The tag is checked only once the entry has been fully
// read (verifyAuth), since it covers the entire ciphertext and cannot be
// validated byte-by-byte.
type aesReader struct {
	r    io.Reader
	ctr  *aesCTRCounter
	mac  hash.Hash
	want []byte
	done bool
}

// newAESReader reads the salt and validates the derived password verifier
// from r, then returns a reader that decrypts and authenticates the
// ciphertext that follows as it streams by. r must end exactly at the
// ciphertext's last byte; the caller (reader.go) is responsible for
// slicing the entry payload so the trailing 10-byte auth tag is excluded
// from r and passed separately as wantTag.
func newAESReader(r io.Reader, password []byte, strength AESStrength, wantTag []byte) (*aesReader, error) {
	salt := make([]byte, strength.saltLen())
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, errs.New(errs.KindStructural, errs.CodeZipTruncated, "zip: truncated AES salt").Wrap(err)
	}
	var pwv [2]byte
	if _, err := io.ReadFull(r, pwv[:]); err != nil {
		return nil, errs.New(errs.KindStructural, errs.CodeZipTruncated, "zip: truncated AES password verifier").Wrap(err)
	}
	keys := deriveAESKeys(password, salt, strength)
	if subtle.ConstantTimeCompare(keys.pwv, pwv[:]) != 1 {
		return nil, errs.New(errs.KindSecurity, errs.CodeZipBadPassword, "zip: incorrect password")
	}
	block, err := aes.NewCipher(keys.encKey)
	if err != nil {
		return nil, errs.New(errs.KindSecurity, errs.CodeZipBadPassword, "zip: cannot construct AES cipher").Wrap(err)
	}
	return &aesReader{
		r:    r,
		ctr:  newAESCTRCounter(block),
		mac:  hmac.New(sha1.New, keys.authKey),
		want: wantTag,
	}, nil
}

func (a *aesReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 {
		a.mac.Write(p[:n])
		a.ctr.xor(p[:n], p[:n])
	}
	if err == io.EOF && !a.done {
		a.done = true
		got := a.mac.Sum(nil)[:aesAuthCodeLen]
		if subtle.ConstantTimeCompare(got, a.want) != 1 {
			return n, errs.New(errs.KindIntegrity, errs.CodeZipAuthFailed, "zip: AES authentication mismatch")
		}
	}
	return n, err
}

// aesWriter is the write-side counterpart of aesReader: it generates a
// random salt, derives keys, writes the salt and password verifier ahead
// of the ciphertext, and accumulates the HMAC-SHA1 auth tag as plaintext
// streams through.
type aesWriter struct {
	w   io.Writer
	ctr *aesCTRCounter
	mac hash.Hash
}

// newAESWriter writes the salt and password verifier to w immediately and
// returns a writer for the ciphertext plus a trailer func that yields the
// 10-byte auth tag once every plaintext byte has been written.
func newAESWriter(w io.Writer, password []byte, strength AESStrength) (*aesWriter, func() ([]byte, error), error) {
	salt := make([]byte, strength.saltLen())
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, errs.New(errs.KindSecurity, errs.CodeZipBadPassword, "zip: cannot generate AES salt").Wrap(err)
	}
	keys := deriveAESKeys(password, salt, strength)
	if _, err := w.Write(salt); err != nil {
		return nil, nil, err
	}
	if _, err := w.Write(keys.pwv); err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(keys.encKey)
	if err != nil {
		return nil, nil, errs.New(errs.KindSecurity, errs.CodeZipBadPassword, "zip: cannot construct AES cipher").Wrap(err)
	}
	aw := &aesWriter{w: w, ctr: newAESCTRCounter(block), mac: hmac.New(sha1.New, keys.authKey)}
	trailer := func() ([]byte, error) {
		return aw.mac.Sum(nil)[:aesAuthCodeLen], nil
	}
	return aw, trailer, nil
}

func (a *aesWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	a.ctr.xor(buf, p)
	a.mac.Write(buf)
	return a.w.Write(buf)
}

func (a *aesWriter) Close() error { return nil }
