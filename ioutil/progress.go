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

import "sync/atomic"

// ProgressKind matches the kind enumeration from the external interfaces
// contract.
type ProgressKind string

const (
	ProgressRead       ProgressKind = "read"
	ProgressWrite      ProgressKind = "write"
	ProgressExtract    ProgressKind = "extract"
	ProgressCompress   ProgressKind = "compress"
	ProgressDecrypt    ProgressKind = "decrypt"
	ProgressEncrypt    ProgressKind = "encrypt"
	ProgressDecompress ProgressKind = "decompress"
)

// ProgressEvent is the wire shape from the external interfaces contract:
// kind plus the optional byte counters. Events from a single pipeline are
// monotonic in BytesIn and BytesOut.
type ProgressEvent struct {
	Kind      ProgressKind
	EntryName string
	BytesIn   uint64
	BytesOut  uint64
	TotalIn   uint64
	TotalOut  uint64
}

// ProgressFunc receives one ProgressEvent per tap invocation. It must return
// quickly: it runs synchronously in the pipeline's goroutine.
type ProgressFunc func(ProgressEvent)

// ProgressTap accumulates monotonic byte counters for a single pipeline and
// invokes a ProgressFunc, collapsed to the single callback bytefold's
// pipelines need rather than separate increment/reset/EOF registrations.
type ProgressTap struct {
	kind      ProgressKind
	entryName string
	fn        ProgressFunc
	bytesIn   uint64
	bytesOut  uint64
	totalIn   uint64
	totalOut  uint64
}

// NewProgressTap constructs a tap for one pipeline stage. fn may be nil, in
// which case Observe is a cheap no-op.
func NewProgressTap(kind ProgressKind, entryName string, totalIn, totalOut uint64, fn ProgressFunc) *ProgressTap {
	return &ProgressTap{kind: kind, entryName: entryName, totalIn: totalIn, totalOut: totalOut, fn: fn}
}

// Observe advances the running counters by the given deltas and invokes the
// callback, if any, with the new monotonic totals.
func (p *ProgressTap) Observe(deltaIn, deltaOut uint64) {
	in := atomic.AddUint64(&p.bytesIn, deltaIn)
	out := atomic.AddUint64(&p.bytesOut, deltaOut)
	if p.fn == nil {
		return
	}
	p.fn(ProgressEvent{
		Kind:      p.kind,
		EntryName: p.entryName,
		BytesIn:   in,
		BytesOut:  out,
		TotalIn:   p.totalIn,
		TotalOut:  p.totalOut,
	})
}
