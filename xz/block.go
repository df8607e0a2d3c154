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

package xz

import (
	"bytes"
	"hash"
	"io"

	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/Ismail-elkorchi/bytefold/xz/lzma2"
)

// countingReader tallies bytes read from the underlying block byte stream,
// so blockReader can compute the unpadded size for the index record
// without the filter stack needing to know about it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// blockReader decodes one xz block: it runs the block's filter chain over
// the raw compressed bytes, tees the decoded output through the stream's
// integrity hash, and validates the header's declared sizes and the
// trailing check value once the block is exhausted.
type blockReader struct {
	header    *BlockHeader
	headerLen int
	raw       countingReader
	hasher    hash.Hash
	check     CheckType
	out       io.Reader
	produced  int64
	done      bool
}

func newBlockReader(xzr io.Reader, h *BlockHeader, headerLen int, check CheckType, dictCapOverride int64) (*blockReader, error) {
	br := &blockReader{header: h, headerLen: headerLen, check: check, hasher: newHasher(check)}
	br.raw = countingReader{r: xzr}

	var lzmaProps []byte
	dictCap := dictCapOverride
	for _, f := range h.Filters {
		if f.ID == FilterLZMA2 {
			lzmaProps = f.Properties
		}
	}
	if len(lzmaProps) != 1 {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: missing LZMA2 filter properties")
	}
	if dictCap <= 0 {
		dc, err := lzma2.DecodeDictCap(lzmaProps[0])
		if err != nil {
			return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: bad LZMA2 dictionary size").Wrap(err)
		}
		dictCap = dc
	}

	lz, err := lzma2.NewReader(&br.raw, dictCap)
	if err != nil {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: cannot construct LZMA2 decoder").Wrap(err)
	}

	chained, err := newFilterChain(h.Filters[:len(h.Filters)-1], lz)
	if err != nil {
		return nil, err
	}

	if br.hasher != nil {
		br.out = io.TeeReader(chained, br.hasher)
	} else {
		br.out = chained
	}
	return br, nil
}

func (br *blockReader) Read(p []byte) (int, error) {
	n, err := br.out.Read(p)
	br.produced += int64(n)

	if u := br.header.UncompressedSize; u >= 0 && br.produced > u {
		return n, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: block exceeded declared uncompressed size")
	}
	if c := br.header.CompressedSize; c >= 0 && br.raw.n > c {
		return n, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: block exceeded declared compressed size")
	}
	if err != io.EOF {
		return n, err
	}

	if u := br.header.UncompressedSize; u >= 0 && br.produced != u {
		return n, io.ErrUnexpectedEOF
	}
	if c := br.header.CompressedSize; c >= 0 && br.raw.n != c {
		return n, io.ErrUnexpectedEOF
	}

	if verr := br.verifyTail(); verr != nil {
		return n, verr
	}
	br.done = true
	return n, io.EOF
}

// verifyTail reads the block padding and the integrity check value,
// comparing the check against the running hash.
func (br *blockReader) verifyTail() error {
	padded := padLen(br.raw.n)
	checkLen := int64(br.check.size())
	tail := make([]byte, padded+checkLen)
	if len(tail) > 0 {
		if _, err := io.ReadFull(br.rawReader(), tail); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
	}
	for _, b := range tail[:padded] {
		if b != 0 {
			return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: non-zero block padding")
		}
	}
	if br.hasher == nil || checkLen == 0 {
		return nil
	}
	want := tail[padded:]
	got := br.hasher.Sum(nil)
	if br.check == CheckCRC32 || br.check == CheckCRC64 {
		// hash/crc32 and hash/crc64 sum big-endian; xz stores both
		// little-endian.
		for i, j := 0, len(got)-1; i < j; i, j = i+1, j-1 {
			got[i], got[j] = got[j], got[i]
		}
	}
	if !bytes.Equal(want, got) {
		return errs.New(errs.KindIntegrity, errs.CodeXZCheckMismatch, "xz: block integrity check mismatch")
	}
	return nil
}

func (br *blockReader) rawReader() io.Reader {
	return &br.raw
}

// unpaddedSize is the index record's unpadded-size field for this block:
// header length + compressed payload length + check length.
func (br *blockReader) unpaddedSize() int64 {
	return int64(br.headerLen) + br.raw.n + int64(br.check.size())
}

func (br *blockReader) uncompressedSize() int64 {
	return br.produced
}
