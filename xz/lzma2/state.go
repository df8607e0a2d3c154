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

const (
	numStates         = 12
	numPosSlots       = 64
	numLenToPosStates = 4
	numAlignBits      = 4
	alignSize         = 1 << numAlignBits
	endPosModelIndex  = 14
	numFullDistances  = 1 << (endPosModelIndex >> 1)
	matchMinLen       = 2
)

// lenDecoder models the LZMA length coder: a two-way choice between a
// low/mid 3-bit tree (for lengths 0..15) and a high 8-bit tree (lengths
// 16..271), chosen per posState.
type lenDecoder struct {
	choice  prob
	choice2 prob
	low     [][]prob // [posState][8]
	mid     [][]prob // [posState][8]
	high    []prob   // [256]
}

func newLenDecoder(numPosStates int) *lenDecoder {
	d := &lenDecoder{
		choice:  bitModelTotal / 2,
		choice2: bitModelTotal / 2,
		low:     make([][]prob, numPosStates),
		mid:     make([][]prob, numPosStates),
		high:    newProbSlice(1 << 8),
	}
	for i := 0; i < numPosStates; i++ {
		d.low[i] = newProbSlice(1 << 3)
		d.mid[i] = newProbSlice(1 << 3)
	}
	return d
}

func (d *lenDecoder) decode(rc *rangeDecoder, posState int) int {
	if rc.decodeBit(&d.choice) == 0 {
		return bitTreeDecode(rc, d.low[posState], 3)
	}
	if rc.decodeBit(&d.choice2) == 0 {
		return 8 + bitTreeDecode(rc, d.mid[posState], 3)
	}
	return 16 + bitTreeDecode(rc, d.high, 8)
}

// lzmaState is the full probability model plus the 12-state FSM and the
// four most-recent match distances ("rep0..rep3") that LZMA's rep-match
// coding reuses, grounded on the classic LZMA decoder structure.
type lzmaState struct {
	lc, lp, pb int
	posMask    int

	state int
	rep0, rep1, rep2, rep3 int

	isMatch    [numStates][]prob // indexed [state][posState]
	isRep      [numStates]prob
	isRepG0    [numStates]prob
	isRepG1    [numStates]prob
	isRepG2    [numStates]prob
	isRep0Long [numStates][]prob

	posSlotDecoder [numLenToPosStates][]prob // each numPosSlots
	specPos        []prob
	alignDecoder   []prob

	lenCoder    *lenDecoder
	repLenCoder *lenDecoder

	literal []prob // [0x300 << (lc+lp)]
}

func newLZMAState(lc, lp, pb int) *lzmaState {
	numPosStates := 1 << uint(pb)
	s := &lzmaState{
		lc: lc, lp: lp, pb: pb,
		posMask:     numPosStates - 1,
		specPos:     newProbSlice(numFullDistances - endPosModelIndex),
		alignDecoder: newProbSlice(alignSize),
		lenCoder:    newLenDecoder(numPosStates),
		repLenCoder: newLenDecoder(numPosStates),
		literal:     newProbSlice(0x300 << uint(lc+lp)),
	}
	for st := 0; st < numStates; st++ {
		s.isMatch[st] = newProbSlice(numPosStates)
		s.isRep0Long[st] = newProbSlice(numPosStates)
		s.isRep[st] = bitModelTotal / 2
		s.isRepG0[st] = bitModelTotal / 2
		s.isRepG1[st] = bitModelTotal / 2
		s.isRepG2[st] = bitModelTotal / 2
	}
	for i := range s.posSlotDecoder {
		s.posSlotDecoder[i] = newProbSlice(numPosSlots)
	}
	s.rep0, s.rep1, s.rep2, s.rep3 = 0, 0, 0, 0
	return s
}

// reset reinitializes the probability model and FSM state in place while
// keeping lc/lp/pb and the allocated slice shapes, for an LZMA2 "state
// reset" chunk that does not carry new properties.
func (s *lzmaState) reset() {
	*s = *newLZMAState(s.lc, s.lp, s.pb)
}

const (
	stateLitLit = iota
	stateMatchLitLit
	stateRepLitLit
	stateShortRepLitLit
	stateLitMatch
	stateLitRep
	stateLitShortRep
	stateNonLitMatch
	stateNonLitRep
	stateNonLitShortRep
	stateMatch2
	stateRep2
)

func stateUpdateLiteral(st int) int {
	switch {
	case st < 4:
		return 0
	case st < 10:
		return st - 3
	default:
		return st - 6
	}
}

func stateUpdateMatch(st int) int {
	if st < 7 {
		return 7
	}
	return 10
}

func stateUpdateRep(st int) int {
	if st < 7 {
		return 8
	}
	return 11
}

func stateUpdateShortRep(st int) int {
	if st < 7 {
		return 9
	}
	return 11
}

func (s *lzmaState) isLitState() bool {
	return s.state < 7
}
