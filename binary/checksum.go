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

import (
	"crypto/sha256"
	"hash"
	"hash/crc32"
	"hash/crc64"
)

// CheckType enumerates the XZ/ZIP integrity-check kinds bytefold verifies.
type CheckType uint8

const (
	CheckNone CheckType = iota
	CheckCRC32
	CheckCRC64
	CheckSHA256
)

// Size returns the on-wire size in bytes of the check value for t.
func (t CheckType) Size() int {
	switch t {
	case CheckCRC32:
		return 4
	case CheckCRC64:
		return 8
	case CheckSHA256:
		return 32
	default:
		return 0
	}
}

func (t CheckType) String() string {
	switch t {
	case CheckCRC32:
		return "crc32"
	case CheckCRC64:
		return "crc64"
	case CheckSHA256:
		return "sha256"
	default:
		return "none"
	}
}

// crc64Table is the ECMA-182 polynomial table XZ uses for its CRC64 check,
// matching the reference implementation's table selection.
var crc64Table = crc64.MakeTable(crc64.ECMA)

// Checker accumulates an integrity check over a stream of writes and
// produces the final check value as its wire-width byte slice.
type Checker struct {
	typ  CheckType
	h    hash.Hash
	h64  hash.Hash64
}

// NewChecker constructs a Checker for the given CheckType. CheckNone returns
// a Checker whose Sum is always empty.
func NewChecker(t CheckType) *Checker {
	c := &Checker{typ: t}
	switch t {
	case CheckCRC32:
		c.h = crc32.NewIEEE()
	case CheckCRC64:
		h := crc64.New(crc64Table)
		c.h64 = h
		c.h = h
	case CheckSHA256:
		c.h = sha256.New()
	}
	return c
}

// Write feeds more data into the running check.
func (c *Checker) Write(p []byte) {
	if c.h != nil {
		_, _ = c.h.Write(p)
	}
}

// Sum returns the final check bytes, little-endian for CRC32/CRC64 (the XZ
// and ZIP wire convention) and big-endian (natural digest order) for SHA-256.
func (c *Checker) Sum(dst []byte) []byte {
	switch c.typ {
	case CheckCRC32:
		v := c.h.(hash.Hash32).Sum32()
		b := make([]byte, 4)
		PutLE32(b, v)
		return append(dst, b...)
	case CheckCRC64:
		v := c.h64.Sum64()
		b := make([]byte, 8)
		PutLE64(b, v)
		return append(dst, b...)
	case CheckSHA256:
		return c.h.Sum(dst)
	default:
		return dst
	}
}

// CRC32IEEE computes the standard CRC-32 (IEEE 802.3 polynomial) of p, the
// per-entry check ZIP local/central headers carry.
func CRC32IEEE(p []byte) uint32 {
	return crc32.ChecksumIEEE(p)
}
