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

package binary

import "errors"

// MaxVLIBytes is the maximum encoded length of a VLI: ceil(63/7) == 9.
const MaxVLIBytes = 9

// MaxVLIValue is the largest value a VLI may encode, 2^63 - 1.
const MaxVLIValue = uint64(1)<<63 - 1

// ErrVLIOverflow is returned when a VLI would exceed MaxVLIBytes or
// MaxVLIValue.
var ErrVLIOverflow = errors.New("binary: vli exceeds 9 bytes or 2^63-1")

// VLIDecoder decodes a variable-length integer incrementally, a byte (or
// chunk of bytes) at a time, so a VLI that straddles two read buffers
// decodes identically to one presented monolithically. This mirrors the
// incremental framing every xz state-machine stage needs, since input
// arrives from an io.Reader in caller-chosen chunk sizes.
type VLIDecoder struct {
	value uint64
	shift uint
	n     int
	done  bool
}

// PushByte feeds one more encoded byte. It returns done=true once the VLI is
// complete (continuation bit clear); the final value is then available via
// Value. An error is returned if the VLI would exceed nine bytes or overflow
// the 63-bit value range.
func (d *VLIDecoder) PushByte(b byte) (done bool, err error) {
	if d.done {
		return true, nil
	}
	if d.n >= MaxVLIBytes {
		return false, ErrVLIOverflow
	}
	d.n++
	d.value |= uint64(b&0x7f) << d.shift
	if b&0x80 == 0 {
		d.done = true
		return true, nil
	}
	if d.n == MaxVLIBytes {
		// nine bytes already carry all 63 value bits, so the 9th byte may
		// not announce a 10th.
		return false, ErrVLIOverflow
	}
	d.shift += 7
	return false, nil
}

// Value returns the decoded value; only meaningful once PushByte reported
// done.
func (d *VLIDecoder) Value() uint64 {
	return d.value
}

// Done reports whether the VLI has been fully consumed.
func (d *VLIDecoder) Done() bool {
	return d.done
}

// BytesRead reports how many encoded bytes have been consumed so far.
func (d *VLIDecoder) BytesRead() int {
	return d.n
}

// DecodeVLI decodes a complete VLI from the head of b, returning the value,
// the number of bytes consumed, and an error if b does not contain a
// complete, valid VLI.
func DecodeVLI(b []byte) (value uint64, n int, err error) {
	var d VLIDecoder
	for i, c := range b {
		done, e := d.PushByte(c)
		if e != nil {
			return 0, 0, e
		}
		if done {
			return d.Value(), i + 1, nil
		}
	}
	return 0, 0, errors.New("binary: truncated vli")
}

// EncodeVLI appends the base-128 little-endian encoding of v to dst.
func EncodeVLI(dst []byte, v uint64) ([]byte, error) {
	if v > MaxVLIValue {
		return nil, ErrVLIOverflow
	}
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
		} else {
			dst = append(dst, b)
			return dst, nil
		}
	}
}
