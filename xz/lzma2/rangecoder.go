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

package lzma2

// Binary range decoder over an in-memory chunk buffer, using the classic
// LZMA 11-bit probability model (kNumBitModelTotalBits = 11,
// kNumMoveBits = 5, kTopValue = 1<<24).
const (
	numBitModelTotalBits = 11
	bitModelTotal        = 1 << numBitModelTotalBits
	numMoveBits          = 5
	topValue             = 1 << 24
)

type prob uint16

func newProbSlice(n int) []prob {
	p := make([]prob, n)
	for i := range p {
		p[i] = bitModelTotal / 2
	}
	return p
}

type rangeDecoder struct {
	buf   []byte
	pos   int
	code  uint32
	rng   uint32
}

func newRangeDecoder(buf []byte) (*rangeDecoder, error) {
	if len(buf) < 5 {
		return nil, ErrCorrupted
	}
	rc := &rangeDecoder{buf: buf, rng: 0xFFFFFFFF}
	if buf[0] != 0 {
		return nil, ErrCorrupted
	}
	rc.pos = 1
	for i := 0; i < 4; i++ {
		rc.code = rc.code<<8 | uint32(rc.readByte())
	}
	return rc, nil
}

func (rc *rangeDecoder) readByte() byte {
	if rc.pos >= len(rc.buf) {
		rc.pos++
		return 0 // input may run out exactly at the chunk's final symbol
	}
	b := rc.buf[rc.pos]
	rc.pos++
	return b
}

func (rc *rangeDecoder) normalize() {
	if rc.rng < topValue {
		rc.rng <<= 8
		rc.code = rc.code<<8 | uint32(rc.readByte())
	}
}

// decodeBit decodes one probability-coded bit, updating p in place.
func (rc *rangeDecoder) decodeBit(p *prob) int {
	bound := (rc.rng >> numBitModelTotalBits) * uint32(*p)
	var bit int
	if rc.code < bound {
		rc.rng = bound
		*p += (bitModelTotal - *p) >> numMoveBits
		bit = 0
	} else {
		rc.rng -= bound
		rc.code -= bound
		*p -= *p >> numMoveBits
		bit = 1
	}
	rc.normalize()
	return bit
}

// decodeDirectBits decodes numBits bits with flat 0.5 probability (used for
// the high bits of distances beyond the probability-modeled slots).
func (rc *rangeDecoder) decodeDirectBits(numBits int) uint32 {
	var res uint32
	for i := 0; i < numBits; i++ {
		rc.rng >>= 1
		rc.code -= rc.rng
		t := 0 - (rc.code >> 31)
		rc.code += rc.rng & t
		rc.normalize()
		res = res<<1 + t + 1
	}
	return res
}

// bitTreeDecode walks a balanced probability tree of depth numBits MSB
// first, the standard LZMA symbol-tree coder.
func bitTreeDecode(rc *rangeDecoder, probs []prob, numBits int) int {
	m := 1
	for i := 0; i < numBits; i++ {
		m = (m << 1) + rc.decodeBit(&probs[m])
	}
	return m - (1 << numBits)
}

// bitTreeReverseDecode is bitTreeDecode for trees whose bits are coded LSB
// first (used for the low-order bits of distances and for align bits).
func bitTreeReverseDecode(rc *rangeDecoder, probs []prob, numBits int) int {
	m := 1
	sym := 0
	for i := 0; i < numBits; i++ {
		b := rc.decodeBit(&probs[m])
		m = (m << 1) + b
		sym |= b << uint(i)
	}
	return sym
}
