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

// Package lzma2 decodes the LZMA2 chunk stream that is always the last
// filter in an xz block's filter chain: a sequence of chunks, each either a
// raw copy or a range-coded LZMA chunk, framed by a one-byte control code
// that also says whether the chunk resets the LZMA state, the probability
// model, and/or the dictionary.
package lzma2

import (
	"errors"
	"io"
)

// DictCap sizes, properties byte encoding. Grounded on the dictionary-size
// formula from the xz file-format spec: for byte values 0..39,
// dictSize = 2 | (byte & 1) shifted by (byte/2 + 11), with size 40 (0x28)
// reserved for UINT32_MAX (not emitted by encoders, rejected here since no
// real dictionary can be that large).
const (
	minDictCapProp = 0
	maxDictCapProp = 39
)

// EncodeDictCap returns the smallest properties byte whose decoded
// dictionary capacity is >= cap.
func EncodeDictCap(cap int64) byte {
	for p := byte(minDictCapProp); p <= maxDictCapProp; p++ {
		if DictCapFor(p) >= cap {
			return p
		}
	}
	return maxDictCapProp
}

// DecodeDictCap converts an LZMA2 filter properties byte into a dictionary
// capacity in bytes.
func DecodeDictCap(p byte) (int64, error) {
	if p > maxDictCapProp {
		return 0, errors.New("lzma2: invalid dictionary size property")
	}
	return DictCapFor(p), nil
}

// DictCapFor computes the dictionary size for properties byte p without
// validating its range.
func DictCapFor(p byte) int64 {
	if p == 40 {
		return int64(1)<<32 - 1
	}
	base := int64(2|int64(p)&1) << (uint(p)/2 + 11)
	return base
}

// Errors surfaced by the decoder; the xz package wraps these into its own
// typed taxonomy with the block/stream context attached.
var (
	ErrCorrupted     = errors.New("lzma2: corrupted chunk stream")
	ErrChunkTooLarge = errors.New("lzma2: chunk exceeds maximum size")
	ErrNoDictReset   = errors.New("lzma2: first chunk must reset the dictionary")
)

const (
	maxUncompressedChunk = 1 << 21 // 2 MiB, the wire-format ceiling
	maxCompressedChunk   = 1 << 16 // 64 KiB, the wire-format ceiling
)

// Reader decodes an LZMA2 chunk stream into decompressed bytes, maintaining
// the sliding-window dictionary across chunks within one xz block. Callers
// construct a fresh Reader per block; BCJ/Delta filters, if present, sit
// between this Reader's output and the block's final consumer, since LZMA2
// is always applied last during compression (so it is undone first).
type Reader struct {
	r       io.Reader
	dictCap int64
	dict    *window
	rc      *rangeDecoder
	state   *lzmaState
	started bool

	chunkBuf []byte
}

// NewReader constructs an LZMA2 decoder reading framed chunks from r, with
// a dictionary sized per the block's filter properties byte.
func NewReader(r io.Reader, dictCap int64) (*Reader, error) {
	if dictCap <= 0 {
		return nil, errors.New("lzma2: non-positive dictionary capacity")
	}
	return &Reader{
		r:       r,
		dictCap: dictCap,
		dict:    newWindow(dictCap),
	}, nil
}

// Read implements io.Reader, decoding chunks on demand to satisfy p.
func (z *Reader) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n := z.dict.drain(p[total:])
		total += n
		if total == len(p) {
			return total, nil
		}
		if err := z.decodeNextChunk(); err != nil {
			if err == io.EOF && total > 0 {
				return total, nil
			}
			return total, err
		}
	}
	return total, nil
}

// decodeNextChunk reads and processes one control byte and its chunk body.
func (z *Reader) decodeNextChunk() error {
	var ctl [1]byte
	if _, err := io.ReadFull(z.r, ctl[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	c := ctl[0]

	if c == 0x00 {
		return io.EOF // end-of-stream marker
	}

	if c < 0x80 {
		// uncompressed chunk: 0x01 resets the dictionary, 0x02 does not.
		if c != 0x01 && c != 0x02 {
			return ErrCorrupted
		}
		if c == 0x01 {
			z.dict.reset()
			z.started = true
		}
		if !z.started {
			return ErrNoDictReset
		}
		size, err := readBE16(z.r)
		if err != nil {
			return err
		}
		usize := int(size) + 1
		if usize > maxUncompressedChunk {
			return ErrChunkTooLarge
		}
		buf := make([]byte, usize)
		if _, err := io.ReadFull(z.r, buf); err != nil {
			return err
		}
		z.dict.appendLiteralRun(buf)
		z.rc = nil // an LZMA chunk following an uncompressed one must carry a new state
		return nil
	}

	// compressed (LZMA) chunk. The 21-bit (uncompressed size - 1) is split
	// between the control byte's low 5 bits and the next two bytes (big
	// endian); the following two bytes hold (compressed size - 1).
	sizeHiLo, err := readBE16(z.r)
	if err != nil {
		return err
	}
	uSize := int(c&0x1f)<<16 | int(sizeHiLo)
	uSize++
	if uSize > maxUncompressedChunk {
		return ErrChunkTooLarge
	}
	csize16, err := readBE16(z.r)
	if err != nil {
		return err
	}
	cSize := int(csize16) + 1
	if cSize > maxCompressedChunk {
		return ErrChunkTooLarge
	}

	resetBits := (c >> 5) & 0x3
	// 0: no reset, 1: state reset, 2: state reset + new props,
	// 3: state reset + new props + dictionary reset.
	var props byte
	hasProps := resetBits >= 2
	if hasProps {
		var pb [1]byte
		if _, err := io.ReadFull(z.r, pb[:]); err != nil {
			return err
		}
		props = pb[0]
	}
	if resetBits == 3 {
		z.dict.reset()
		z.started = true
	}
	if !z.started {
		return ErrNoDictReset
	}

	if z.state == nil && !hasProps {
		return ErrCorrupted
	}
	if hasProps {
		lc, lp, pbv := decodeProps(props)
		z.state = newLZMAState(lc, lp, pbv)
	} else if resetBits >= 1 {
		z.state.reset()
	}

	packed := make([]byte, cSize)
	if _, err := io.ReadFull(z.r, packed); err != nil {
		return err
	}
	rc, err := newRangeDecoder(packed)
	if err != nil {
		return err
	}
	z.rc = rc

	if err := decodeLZMAChunk(z.state, z.dict, z.rc, uSize); err != nil {
		return err
	}
	return nil
}

func readBE16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func decodeProps(p byte) (lc, lp, pb int) {
	v := int(p)
	lc = v % 9
	v /= 9
	lp = v % 5
	pb = v / 5
	return
}
