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

package tar

import (
	"strconv"
	"strings"

	"github.com/Ismail-elkorchi/bytefold/errs"
)

// parseNumeric decodes a ustar numeric field: NUL/space-terminated octal by
// default, or GNU's base-256 fallback when the field's high bit is set (the
// remaining bits form a signed big-endian integer), used whenever a value
// would overflow octal's reach (large uid/gid, size > 8GiB, pre-1970 or
// post-2242 mtimes).
func parseNumeric(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if b[0]&0x80 != 0 {
		return parseBase256(b), nil
	}
	s := strings.TrimRight(string(b), "\x00 ")
	s = strings.TrimLeft(s, " ")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 8, 64)
	if err != nil {
		return 0, errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: invalid octal numeric field").Wrap(err)
	}
	return v, nil
}

// parseBase256 decodes GNU's base-256 numeric extension: byte 0's top bit
// (already consumed by the caller to choose this path) marks the encoding,
// and bit 0x40 of byte 0 is the two's-complement sign, sign-extended by
// seeding the accumulator with every bit set before shifting in the
// remaining magnitude bytes.
func parseBase256(b []byte) int64 {
	var v int64
	if b[0]&0x40 != 0 {
		v = -1
	}
	for i, c := range b {
		if i == 0 {
			c &= 0x7F
		}
		v = v<<8 | int64(c)
	}
	return v
}

// formatOctal encodes v as a NUL-terminated, zero-padded octal field of
// exactly width bytes, falling back to base-256 when v does not fit.
func formatOctal(v int64, width int) []byte {
	s := strconv.FormatInt(v, 8)
	if len(s)+1 <= width {
		out := make([]byte, width)
		pad := width - 1 - len(s)
		for i := 0; i < pad; i++ {
			out[i] = '0'
		}
		copy(out[pad:width-1], s)
		out[width-1] = 0
		return out
	}
	return formatBase256(v, width)
}

// formatBase256 encodes v as a GNU base-256 field: the marker bit (0x80) is
// set on the first byte, and the value fills the remaining width-1 bytes
// big-endian (non-negative values only; bytefold never writes negative
// numeric fields).
func formatBase256(v int64, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 1; i-- {
		out[i] = byte(v & 0xFF)
		v >>= 8
	}
	out[0] = 0x80
	return out
}

// checksum computes the ustar header checksum: the unsigned sum of all 512
// header bytes with the checksum field itself treated as eight spaces.
func checksum(block []byte) int64 {
	var sum int64
	for i, b := range block {
		if i >= offChksum && i < offChksum+lenChksum {
			sum += int64(' ')
		} else {
			sum += int64(b)
		}
	}
	return sum
}

// formatChecksum renders the computed checksum as 6 octal digits, a NUL,
// and a trailing space, the field layout POSIX requires.
func formatChecksum(sum int64) []byte {
	s := strconv.FormatInt(sum, 8)
	for len(s) < 6 {
		s = "0" + s
	}
	out := make([]byte, 8)
	copy(out, s)
	out[6] = 0
	out[7] = ' '
	return out
}

func cstring(b []byte) string {
	if i := indexNUL(b); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
