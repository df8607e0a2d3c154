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

// window is the LZ77 sliding-window dictionary: a ring buffer that both
// serves back-reference copies and buffers decoded bytes the Reader hasn't
// delivered to its caller yet.
type window struct {
	buf   []byte
	cap   int64
	pos   int // write cursor, wraps at cap
	total int64

	// readTotal tracks bytes already drained from buf into a caller's
	// Read buffer, separate from the LZ77 history cursor.
	readTotal int64
}

func newWindow(cap int64) *window {
	return &window{buf: make([]byte, cap), cap: cap}
}

func (w *window) reset() {
	w.pos = 0
	w.total = 0
	w.readTotal = 0
}

func (w *window) putByte(b byte) {
	w.buf[w.pos] = b
	w.pos++
	if int64(w.pos) == w.cap {
		w.pos = 0
	}
	w.total++
}

// byteAt returns the byte `dist` positions behind the current write cursor
// (dist == 1 means the most recently written byte).
func (w *window) byteAt(dist int) byte {
	idx := w.pos - dist
	for idx < 0 {
		idx += int(w.cap)
	}
	return w.buf[idx]
}

// copyMatch appends length bytes copied from dist positions back, one byte
// at a time (required since source and destination ranges can overlap for
// run-length-style matches).
func (w *window) copyMatch(dist, length int) {
	for i := 0; i < length; i++ {
		w.putByte(w.byteAt(dist))
	}
}

func (w *window) appendLiteralRun(p []byte) {
	for _, b := range p {
		w.putByte(b)
	}
}

// drain copies up to len(p) undelivered bytes into p. Undelivered bytes are
// those written (w.total) but not yet counted in w.readTotal; since the
// window buffer is also the delivery buffer, drain walks the ring from the
// read cursor forward.
func (w *window) drain(p []byte) int {
	avail := w.total - w.readTotal
	if avail <= 0 {
		return 0
	}
	n := int64(len(p))
	if n > avail {
		n = avail
	}
	start := (w.pos - int(w.total-w.readTotal)) % int(w.cap)
	for start < 0 {
		start += int(w.cap)
	}
	for i := int64(0); i < n; i++ {
		p[i] = w.buf[start]
		start++
		if int64(start) == w.cap {
			start = 0
		}
	}
	w.readTotal += n
	return int(n)
}
