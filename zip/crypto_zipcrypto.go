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
	"hash/crc32"
	"io"

	"github.com/Ismail-elkorchi/bytefold/errs"
)

// zipCryptoKeys holds the traditional PKWARE stream cipher's three running
// CRC32 registers, updated one plaintext byte at a time per APPNOTE 6.3.10
// appendix A (the classic "Biham" cipher: weak by modern standards, but it
// is what a ZIP entry with method-level encryption and no 0x9901 extra
// means).
type zipCryptoKeys struct {
	key0, key1, key2 uint32
}

func newZipCryptoKeys(password []byte) *zipCryptoKeys {
	k := &zipCryptoKeys{key0: 0x12345678, key1: 0x23456789, key2: 0x34567890}
	for _, b := range password {
		k.update(b)
	}
	return k
}

func (k *zipCryptoKeys) update(b byte) {
	k.key0 = crc32.Update(k.key0, crc32.IEEETable, []byte{b})
	k.key1 = k.key1 + (k.key0 & 0xFF)
	k.key1 = k.key1*134775813 + 1
	k.key2 = crc32.Update(k.key2, crc32.IEEETable, []byte{byte(k.key1 >> 24)})
}

func (k *zipCryptoKeys) decryptByte(c byte) byte {
	tmp := k.key2 | 2
	p := c ^ byte((tmp*(tmp^1))>>8)
	k.update(p)
	return p
}

// zipCryptoReader decrypts a ZipCrypto-protected entry stream: the first
// 12 bytes are the encryption header (the last byte, once decrypted, must
// equal the high byte of either the entry's CRC32 or its MS-DOS mod time,
// per the two verification conventions different writers use), and every
// subsequent byte is decrypted in turn before reaching the real
// compressed payload.
type zipCryptoReader struct {
	r    io.Reader
	keys *zipCryptoKeys
}

func newZipCryptoReader(r io.Reader, password []byte, verify byte) (*zipCryptoReader, error) {
	keys := newZipCryptoKeys(password)
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errs.New(errs.KindStructural, errs.CodeZipTruncated, "zip: truncated ZipCrypto header").Wrap(err)
	}
	var last byte
	for _, c := range header {
		last = keys.decryptByte(c)
	}
	if last != verify {
		return nil, errs.New(errs.KindSecurity, errs.CodeZipBadPassword, "zip: incorrect password")
	}
	return &zipCryptoReader{r: r, keys: keys}, nil
}

func (z *zipCryptoReader) Read(p []byte) (int, error) {
	n, err := z.r.Read(p)
	for i := 0; i < n; i++ {
		p[i] = z.keys.decryptByte(p[i])
	}
	return n, err
}
