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
	"io"

	"github.com/Ismail-elkorchi/bytefold/binary"
	"github.com/Ismail-elkorchi/bytefold/errs"
)

// readOneVLIFromReader decodes one VLI directly from a forward-only
// io.Reader, a byte at a time, using binary.VLIDecoder so the value decodes
// identically regardless of how the caller's underlying reader chooses to
// chunk its Read calls. It returns the decoded value and how many bytes
// were consumed.
func readOneVLIFromReader(r io.Reader) (uint64, int, error) {
	var dec binary.VLIDecoder
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, 0, err
		}
		done, err := dec.PushByte(b[0])
		if err != nil {
			return 0, 0, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: malformed variable-length integer in index").Wrap(err)
		}
		if done {
			return dec.Value(), dec.BytesRead(), nil
		}
	}
}

// VLIReader is a cursor over an already-buffered byte slice that reads a
// sequence of VLIs (block header sizes, filter ids/sizes, index records),
// built on binary.DecodeVLI. Block headers and the index are always fully
// buffered before parsing (their length is self-describing), so a cursor
// over a slice is simpler here than binary.VLIDecoder's streaming form,
// which bytefold uses instead where a VLI can straddle read-buffer
// boundaries, such as the index read from a forward-only stream
// (readOneVLIFromReader).
type VLIReader struct {
	data []byte
	pos  int
}

// NewVLIReader wraps data for sequential VLI/byte reads.
func NewVLIReader(data []byte) *VLIReader {
	return &VLIReader{data: data}
}

// ReadOne decodes the next VLI from the cursor.
func (r *VLIReader) ReadOne() (uint64, error) {
	v, n, err := binary.DecodeVLI(r.data[r.pos:])
	if err != nil {
		return 0, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: malformed variable-length integer").Wrap(err)
	}
	r.pos += n
	return v, nil
}

// ReadBytes consumes and returns the next n raw bytes.
func (r *VLIReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: filter properties run past header end")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Remaining reports how many bytes are left unconsumed.
func (r *VLIReader) Remaining() int {
	return len(r.data) - r.pos
}

// RequireZeroPadding asserts that everything left in the cursor is zero
// padding, per the xz block header and index framing rules.
func (r *VLIReader) RequireZeroPadding() error {
	for _, b := range r.data[r.pos:] {
		if b != 0 {
			return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: non-zero padding")
		}
	}
	r.pos = len(r.data)
	return nil
}
