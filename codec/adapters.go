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

package codec

import (
	"compress/bzip2"
	"compress/flate"
	"compress/gzip"
	"errors"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// errNoXZWriter is returned by the XZ Factory's NewWriter: XZ encoding is
// out of scope, so the registry still names the algorithm (readers
// elsewhere need to recognize the id) but refuses to produce one.
var errNoXZWriter = errors.New("codec: writing xz is out of scope (read-only algorithm)")

func init() {
	Register(Deflate, Factory{
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return flate.NewReader(r), nil
		},
		NewWriter: func(w io.WriteCloser) (io.WriteCloser, error) {
			fw, err := flate.NewWriter(w, flate.DefaultCompression)
			if err != nil {
				return nil, err
			}
			return &flushOnCloseWriter{w: fw, underlying: w}, nil
		},
	})

	Register(DeflateRaw, Factory{
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return flate.NewReader(r), nil
		},
		NewWriter: func(w io.WriteCloser) (io.WriteCloser, error) {
			fw, err := flate.NewWriter(w, flate.DefaultCompression)
			if err != nil {
				return nil, err
			}
			return &flushOnCloseWriter{w: fw, underlying: w}, nil
		},
	})

	Register(Gzip, Factory{
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
		NewWriter: func(w io.WriteCloser) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
	})

	Register(Bzip2, Factory{
		// Bzip2 is read-only: there is no bzip2 writer here, only a decoder.
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(bzip2.NewReader(r)), nil
		},
	})

	Register(LZ4, Factory{
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(lz4.NewReader(r)), nil
		},
		NewWriter: func(w io.WriteCloser) (io.WriteCloser, error) {
			lw := lz4.NewWriter(w)
			return &flushOnCloseWriter{w: lw, underlying: w}, nil
		},
	})

	Register(Brotli, Factory{
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(brotli.NewReader(r)), nil
		},
		NewWriter: func(w io.WriteCloser) (io.WriteCloser, error) {
			bw := brotli.NewWriter(w)
			return &flushOnCloseWriter{w: bw, underlying: w}, nil
		},
	})

	Register(Zstd, Factory{
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		},
		NewWriter: func(w io.WriteCloser) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
	})

	Register(XZ, Factory{
		// NewReader is intentionally left nil here: bytefold's xz package
		// is the real decoder and registers itself
		// from its own init() via SetXZReaderFactory, avoiding an import
		// cycle between codec and xz.
		NewWriter: func(io.WriteCloser) (io.WriteCloser, error) {
			return nil, errNoXZWriter
		},
	})
}

// SetXZReaderFactory lets the xz package install its decoder into the
// registry without codec importing xz (which itself may want to use
// codec for nothing, but keeping the dependency one-directional avoids any
// chance of a cycle as both packages grow).
func SetXZReaderFactory(f func(r io.Reader) (io.ReadCloser, error)) {
	mu.Lock()
	defer mu.Unlock()
	e := registry[XZ]
	e.NewReader = f
	registry[XZ] = e
}

// flushOnCloseWriter wraps a compressor that exposes Close (flushing final
// bytes) distinct from closing the underlying sink: closing the compressor
// must not close the caller-owned underlying writer for algorithms (flate,
// lz4, brotli) whose Close only flushes.
type flushOnCloseWriter struct {
	w          io.WriteCloser
	underlying io.WriteCloser
}

func (f *flushOnCloseWriter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f *flushOnCloseWriter) Close() error {
	return f.w.Close()
}
