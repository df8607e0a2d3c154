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

// decodeLZMAChunk decodes exactly wantOut bytes of one LZMA2 LZMA chunk
// from rc into dict, advancing s's probability model and rep-distances in
// place so the next chunk (if it doesn't reset state) continues correctly.
func decodeLZMAChunk(s *lzmaState, dict *window, rc *rangeDecoder, wantOut int) error {
	produced := 0
	for produced < wantOut {
		posState := int(dict.total) & s.posMask

		if rc.decodeBit(&s.isMatch[s.state][posState]) == 0 {
			// literal
			b := decodeLiteral(s, dict, rc)
			dict.putByte(b)
			s.state = stateUpdateLiteral(s.state)
			produced++
			continue
		}

		var length int
		if rc.decodeBit(&s.isRep[s.state]) == 0 {
			// new match: rep3,2,1 shift, new rep0 from distance coder
			s.rep3, s.rep2, s.rep1 = s.rep2, s.rep1, s.rep0
			length = s.lenCoder.decode(rc, posState) + matchMinLen
			lenState := length - matchMinLen
			if lenState >= numLenToPosStates {
				lenState = numLenToPosStates - 1
			}
			s.rep0 = decodeDistance(s, rc, lenState)
			if s.rep0 < 0 {
				return ErrCorrupted
			}
			s.state = stateUpdateMatch(s.state)
		} else {
			// rep match
			if rc.decodeBit(&s.isRepG0[s.state]) == 0 {
				if rc.decodeBit(&s.isRep0Long[s.state][posState]) == 0 {
					// short rep: single byte copy of rep0
					s.state = stateUpdateShortRep(s.state)
					dict.putByte(dict.byteAt(s.rep0 + 1))
					produced++
					continue
				}
			} else {
				var dist int
				if rc.decodeBit(&s.isRepG1[s.state]) == 0 {
					dist = s.rep1
				} else if rc.decodeBit(&s.isRepG2[s.state]) == 0 {
					dist = s.rep2
					s.rep2 = s.rep1
				} else {
					dist = s.rep3
					s.rep3 = s.rep2
					s.rep2 = s.rep1
				}
				s.rep1 = s.rep0
				s.rep0 = dist
			}
			length = s.repLenCoder.decode(rc, posState) + matchMinLen
			s.state = stateUpdateRep(s.state)
		}

		if length > wantOut-produced {
			length = wantOut - produced // a match may legitimately straddle the chunk boundary's declared size only up to the chunk
		}
		dict.copyMatch(s.rep0+1, length)
		produced += length
	}
	return nil
}

func decodeLiteral(s *lzmaState, dict *window, rc *rangeDecoder) byte {
	prevByte := byte(0)
	if dict.total > 0 {
		prevByte = dict.byteAt(1)
	}
	litState := (int(dict.total)&((1<<uint(s.lp))-1))<<uint(s.lc) | int(prevByte>>uint(8-s.lc))
	base := litState * 0x300
	probs := s.literal[base : base+0x300]

	symbol := 1
	if s.isLitState() {
		for symbol < 0x100 {
			bit := rc.decodeBit(&probs[symbol])
			symbol = symbol<<1 | bit
		}
	} else {
		matchByte := dict.byteAt(s.rep0 + 1)
		for symbol < 0x100 {
			matchBit := int(matchByte>>7) & 1
			matchByte <<= 1
			bit := rc.decodeBit(&probs[((1+matchBit)<<8)+symbol])
			symbol = symbol<<1 | bit
			if matchBit != bit {
				for symbol < 0x100 {
					symbol = symbol<<1 | rc.decodeBit(&probs[symbol])
				}
				break
			}
		}
	}
	return byte(symbol)
}

// decodeDistance decodes a match distance for the given length-state,
// combining the 6-bit posSlot tree with direct bits and the 4-bit aligned
// low bits, per the classic LZMA distance coder.
func decodeDistance(s *lzmaState, rc *rangeDecoder, lenState int) int {
	posSlot := bitTreeDecode(rc, s.posSlotDecoder[lenState], 6)
	if posSlot < 4 {
		return posSlot
	}
	numDirectBits := uint(posSlot>>1) - 1
	dist := (2 | (posSlot & 1)) << numDirectBits

	if posSlot < endPosModelIndex {
		dist += bitTreeReverseDecodeSlice(rc, s.specPos, dist-posSlot-1, int(numDirectBits))
		return dist
	}

	dist += int(rc.decodeDirectBits(int(numDirectBits)-numAlignBits)) << numAlignBits
	dist += bitTreeReverseDecode(rc, s.alignDecoder, numAlignBits)
	return dist
}

// bitTreeReverseDecodeSlice is bitTreeReverseDecode over a probability
// array addressed starting at offset (LZMA's specPos array is shared across
// all short posSlots, indexed from dist-posSlot).
func bitTreeReverseDecodeSlice(rc *rangeDecoder, probs []prob, offset, numBits int) int {
	m := 1
	sym := 0
	for i := 0; i < numBits; i++ {
		b := rc.decodeBit(&probs[offset+m])
		m = (m << 1) + b
		sym |= b << uint(i)
	}
	return sym
}
