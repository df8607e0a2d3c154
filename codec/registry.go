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

// Package codec maps a compression-method id to its stream transform: the
// single-file gzip/deflate/bzip2/lz4/brotli/zstd adapters the ZIP and
// single-file paths use. The XZ transform lives in its own package (see
// the xz package doc) since its decoder is bytefold's own hand-written
// state machine rather than a thin wrapper, but it registers itself here
// too so callers have one lookup surface.
package codec

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Algorithm identifies a single-file compression method, grounded on
// a compression-algorithm enum generalized with the
// brotli/zstd/deflate/deflate-raw/store variants a full archive library needs.
type Algorithm uint8

const (
	None Algorithm = iota
	Store           // explicit alias of None used by ZIP method 0
	Deflate
	DeflateRaw
	Gzip
	Bzip2
	LZ4
	Brotli
	Zstd
	XZ
)

func (a Algorithm) String() string {
	switch a {
	case Store:
		return "store"
	case Deflate:
		return "deflate"
	case DeflateRaw:
		return "deflate-raw"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case LZ4:
		return "lz4"
	case Brotli:
		return "brotli"
	case Zstd:
		return "zstd"
	case XZ:
		return "xz"
	default:
		return "none"
	}
}

// List returns every known algorithm in a stable order.
func List() []Algorithm {
	return []Algorithm{None, Store, Deflate, DeflateRaw, Gzip, Bzip2, LZ4, Brotli, Zstd, XZ}
}

// Parse maps a case-insensitive name to its Algorithm, returning None for
// anything unrecognized.
func Parse(s string) Algorithm {
	s = strings.TrimSpace(s)
	for _, a := range List() {
		if strings.EqualFold(a.String(), s) {
			return a
		}
	}
	return None
}

// Factory builds a decompressing reader and, where supported, a compressing
// writer for one Algorithm. XZ registers a Factory whose NewWriter always
// errs, since encoding XZ streams is out of scope here.
type Factory struct {
	NewReader func(r io.Reader) (io.ReadCloser, error)
	NewWriter func(w io.WriteCloser) (io.WriteCloser, error)
}

var (
	mu       sync.RWMutex
	registry = make(map[Algorithm]Factory)
)

// Register installs f as the Factory for a. Called from each adapter's
// init(), so the registry is fully populated before any Algorithm.Reader or
// Algorithm.Writer call, and is read-only thereafter (XZ encoding:
// "populated at startup by a single init routine").
func Register(a Algorithm, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[a] = f
}

// Reader builds a decompressing io.ReadCloser for Algorithm a over r.
func (a Algorithm) Reader(r io.Reader) (io.ReadCloser, error) {
	if a == None || a == Store {
		return io.NopCloser(r), nil
	}
	mu.RLock()
	f, ok := registry[a]
	mu.RUnlock()
	if !ok || f.NewReader == nil {
		return nil, fmt.Errorf("codec: no reader registered for %s", a)
	}
	return f.NewReader(r)
}

// Writer builds a compressing io.WriteCloser for Algorithm a over w.
func (a Algorithm) Writer(w io.WriteCloser) (io.WriteCloser, error) {
	if a == None || a == Store {
		return w, nil
	}
	mu.RLock()
	f, ok := registry[a]
	mu.RUnlock()
	if !ok || f.NewWriter == nil {
		return nil, fmt.Errorf("codec: no writer registered for %s", a)
	}
	return f.NewWriter(w)
}
