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

// Package ioutil holds the narrow external interfaces bytefold's core reads
// and writes through (RandomAccess, Sink/SeekableSink), a bounded block
// cache for seekable sources, and a couple of minimal in-memory/file
// adapters so the core is directly usable without a host application
// wiring its own byte-range session.
package ioutil

import "context"

// RandomAccess is the read side of the external interface contract: a
// source that can report its size and read an arbitrary byte range, each
// operation cancellable via the supplied context.
type RandomAccess interface {
	// Size returns the total byte length of the source.
	Size(ctx context.Context) (uint64, error)
	// ReadAt reads length bytes starting at offset. It may return fewer
	// bytes than requested at EOF, mirroring io.ReaderAt's early-EOF
	// convention, but unlike io.ReaderAt, a short, non-EOF read is also
	// legal: callers must loop on the returned count, not assume it fills
	// the buffer.
	ReadAt(ctx context.Context, offset uint64, length int) ([]byte, error)
	// Close releases any resources held by the source.
	Close() error
}

// byteSource adapts an in-memory byte slice to RandomAccess.
type byteSource struct {
	data []byte
}

// NewByteSource wraps b as a RandomAccess source. b is not copied; the
// caller must not mutate it for the lifetime of the source.
func NewByteSource(b []byte) RandomAccess {
	return &byteSource{data: b}
}

func (s *byteSource) Size(_ context.Context) (uint64, error) {
	return uint64(len(s.data)), nil
}

func (s *byteSource) ReadAt(_ context.Context, offset uint64, length int) ([]byte, error) {
	if offset >= uint64(len(s.data)) {
		return nil, nil
	}
	end := offset + uint64(length)
	if end > uint64(len(s.data)) {
		end = uint64(len(s.data))
	}
	return s.data[offset:end], nil
}

func (s *byteSource) Close() error {
	return nil
}
