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

package ioutil

import (
	"io"
	"sync"
)

// MultiCloser collects several io.Closer instances opened while assembling
// a pipeline (the raw range reader, a decrypt stage, a decompress stage) and
// closes all of them from a single Close call, in registration order,
// returning the first error encountered but still attempting every Close.
// Trimmed to the synchronous, non-context-driven subset bytefold's
// pipelines need.
type MultiCloser struct {
	mu      sync.Mutex
	closers []io.Closer
	closed  bool
}

// Add registers one or more closers. Nil closers are ignored.
func (m *MultiCloser) Add(c ...io.Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cl := range c {
		if cl != nil {
			m.closers = append(m.closers, cl)
		}
	}
}

// Close closes every registered closer in registration order and returns
// the first non-nil error, if any. Subsequent calls are no-ops.
func (m *MultiCloser) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// nopWriteCloser adapts an io.Writer with no meaningful close into an
// io.WriteCloser, for writers used only transiently.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NopWriteCloser wraps w so it satisfies io.WriteCloser with a no-op Close.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return nopWriteCloser{Writer: w}
}
