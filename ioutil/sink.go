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
	"context"
	"errors"
	"os"
)

// Sink is the append-only write side of the external interface contract.
type Sink interface {
	// Position returns the current, monotonically increasing write offset.
	Position() uint64
	// Write appends bytes, advancing Position by len(p).
	Write(p []byte) (int, error)
	// Close finalizes the sink.
	Close() error
}

// SeekableSink is a Sink that additionally supports positioned writes which
// do not move Position, letting a writer patch an earlier local header once
// an entry's final size/CRC are known.
type SeekableSink interface {
	Sink
	// WriteAt writes p at offset without moving Position.
	WriteAt(offset uint64, p []byte) (int, error)
}

// memSink is an in-memory, growable SeekableSink backed by a byte slice.
type memSink struct {
	buf    []byte
	pos    uint64
	closed bool
}

// NewMemSink returns an in-memory SeekableSink, useful for building an
// archive entirely in memory (tests, or small archives).
func NewMemSink() SeekableSink {
	return &memSink{}
}

func (m *memSink) Position() uint64 {
	return m.pos
}

func (m *memSink) Write(p []byte) (int, error) {
	if m.closed {
		return 0, errors.New("ioutil: write to closed sink")
	}
	m.buf = append(m.buf, p...)
	m.pos += uint64(len(p))
	return len(p), nil
}

func (m *memSink) WriteAt(offset uint64, p []byte) (int, error) {
	if m.closed {
		return 0, errors.New("ioutil: write to closed sink")
	}
	end := offset + uint64(len(p))
	if end > uint64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[offset:end], p)
	return len(p), nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

// Bytes returns the accumulated content. Valid at any point, closed or not.
func (m *memSink) Bytes() []byte {
	return m.buf
}

// MemSinkBytes extracts the accumulated bytes from a SeekableSink created by
// NewMemSink. It panics if sink was not created by NewMemSink, since mixing
// sink implementations here is a programming error, not a runtime condition.
func MemSinkBytes(sink SeekableSink) []byte {
	return sink.(*memSink).Bytes()
}

// fileSink adapts *os.File to SeekableSink, trimmed to the narrow Sink
// contract bytefold's core actually needs.
type fileSink struct {
	f   *os.File
	pos uint64
}

// NewFileSink wraps f as a SeekableSink. The file must already be open for
// writing at its current position (normally offset 0 on a fresh file).
func NewFileSink(f *os.File) SeekableSink {
	return &fileSink{f: f}
}

func (s *fileSink) Position() uint64 {
	return s.pos
}

func (s *fileSink) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	s.pos += uint64(n)
	return n, err
}

func (s *fileSink) WriteAt(offset uint64, p []byte) (int, error) {
	return s.f.WriteAt(p, int64(offset))
}

func (s *fileSink) Close() error {
	return s.f.Close()
}

// fileSource adapts *os.File to RandomAccess.
type fileSource struct {
	f *os.File
}

// NewFileSource wraps f as a RandomAccess source.
func NewFileSource(f *os.File) RandomAccess {
	return &fileSource{f: f}
}

func (s *fileSource) Size(_ context.Context) (uint64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(fi.Size()), nil
}

func (s *fileSource) ReadAt(_ context.Context, offset uint64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := s.f.ReadAt(buf, int64(offset))
	if err != nil && n == 0 {
		return nil, err
	}
	return buf[:n], nil
}

func (s *fileSource) Close() error {
	return s.f.Close()
}
