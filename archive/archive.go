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

// Package archive is the format-agnostic entry point: it peeks the leading
// bytes of a source, optionally unwraps a single-file compression layer,
// and dispatches to the ZIP or TAR reader underneath, so a caller that
// doesn't know in advance whether it holds a .zip, a .tar, or a .tar.gz
// can just call Open.
package archive

import (
	"bytes"
	"context"
	"io"

	"github.com/Ismail-elkorchi/bytefold/codec"
	"github.com/Ismail-elkorchi/bytefold/ioutil"
	"github.com/Ismail-elkorchi/bytefold/limits"
	"github.com/Ismail-elkorchi/bytefold/tar"
	_ "github.com/Ismail-elkorchi/bytefold/xz" // registers the XZ codec for unwrapToTar's .tar.xz path
	"github.com/Ismail-elkorchi/bytefold/zip"
)

// Kind names the container format an Archive was dispatched to.
type Kind string

const (
	KindZip Kind = "zip"
	KindTar Kind = "tar"
)

// peekWindow only needs to cover the longest magic this package checks
// (the 6-byte XZ stream header); kept at one full tar block so a short
// source never forces a second ReadAt just to classify it.
const peekWindow = 512

// Options configures Open's dispatch and the limits its chosen reader runs
// under.
type Options struct {
	Limits limits.Config
	Strict bool
}

// OpenOption mutates Options; each exported With* func returns one.
type OpenOption func(*Options)

// WithLimits overrides the resource ceilings applied to the dispatched
// reader.
func WithLimits(cfg limits.Config) OpenOption {
	return func(o *Options) { o.Limits = cfg }
}

// WithStrict toggles the ZIP reader's strict EOCD validation.
func WithStrict(strict bool) OpenOption {
	return func(o *Options) { o.Strict = strict }
}

// Archive is the common surface Open returns regardless of which
// container format it dispatched to.
type Archive interface {
	// Kind reports which container format backs this Archive.
	Kind() Kind
	// ZIP returns the underlying zip.Reader, or nil if Kind() != KindZip.
	ZIP() *zip.Reader
	// TAR returns the underlying tar.Reader, or nil if Kind() != KindTar.
	TAR() *tar.Reader
	// Close releases any codec layer(s) Open composed ahead of the
	// underlying reader. It does not close the RandomAccess source passed
	// to Open; the caller retains ownership of that.
	Close() error
}

type zipArchive struct{ r *zip.Reader }

func (a *zipArchive) Kind() Kind       { return KindZip }
func (a *zipArchive) ZIP() *zip.Reader { return a.r }
func (a *zipArchive) TAR() *tar.Reader { return nil }
func (a *zipArchive) Close() error     { return nil }

type tarArchive struct {
	r      *tar.Reader
	closer io.Closer // the single-file codec layer(s) unwrapped ahead of it, if any
}

func (a *tarArchive) Kind() Kind       { return KindTar }
func (a *tarArchive) ZIP() *zip.Reader { return nil }
func (a *tarArchive) TAR() *tar.Reader { return a.r }

// Close releases any codec layer(s) composed ahead of the TAR reader.
func (a *tarArchive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Open classifies src by its leading bytes and returns an Archive that
// streams its entries. A ZIP signature dispatches straight to zip.Open
// (ZIP needs random access for its trailing central directory and cannot
// be unwrapped from a compression layer first). Anything else is assumed
// to be a TAR, optionally preceded by one gzip/bzip2/xz layer, composed as
// a plain io.Reader chain rather than a materialized temp file.
func Open(ctx context.Context, src ioutil.RandomAccess, opts ...OpenOption) (Archive, error) {
	cfg := Options{}
	for _, o := range opts {
		o(&cfg)
	}
	cfg.Limits = cfg.Limits.ApplyDefaults(limits.Default)

	head, err := src.ReadAt(ctx, 0, peekWindow)
	if err != nil {
		return nil, err
	}

	if looksLikeZip(head) {
		r, err := zip.Open(ctx, src, zip.Config{Limits: cfg.Limits, Strict: cfg.Strict})
		if err != nil {
			return nil, err
		}
		return &zipArchive{r: r}, nil
	}

	streamReader, closer, err := unwrapToTar(ctx, src, head)
	if err != nil {
		return nil, err
	}
	return &tarArchive{r: tar.NewReader(streamReader, cfg.Limits), closer: closer}, nil
}

// unwrapToTar builds the io.Reader chain feeding the TAR parser: zero or
// one single-file codec layer (gzip/bzip2/xz) composed ahead of the raw
// bytes, matching nabbar's ExtractFile layering but lazily instead of via
// successive temp files.
func unwrapToTar(ctx context.Context, src ioutil.RandomAccess, head []byte) (io.Reader, io.Closer, error) {
	size, err := src.Size(ctx)
	if err != nil {
		return nil, nil, err
	}
	raw := &randomAccessReader{ctx: ctx, src: src, size: size}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		rc, err := codec.Gzip.Reader(raw)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc, nil
	case bytes.HasPrefix(head, bzip2Magic):
		rc, err := codec.Bzip2.Reader(raw)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc, nil
	case bytes.HasPrefix(head, xzMagic):
		rc, err := codec.XZ.Reader(raw)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc, nil
	default:
		return raw, nil, nil
	}
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// looksLikeZip reports whether head opens with a local-file-header,
// empty-archive, or spanned-archive ZIP signature (APPNOTE 6.3.10
// section 4.3.6 lists all three as valid leading signatures).
func looksLikeZip(head []byte) bool {
	sigs := [][]byte{
		{'P', 'K', 0x03, 0x04},
		{'P', 'K', 0x05, 0x06},
		{'P', 'K', 0x07, 0x08},
	}
	for _, sig := range sigs {
		if bytes.HasPrefix(head, sig) {
			return true
		}
	}
	return false
}

// randomAccessReader adapts a RandomAccess source to a sequential
// io.Reader, the shape every codec.Algorithm.Reader factory expects.
type randomAccessReader struct {
	ctx    context.Context
	src    ioutil.RandomAccess
	size   uint64
	offset uint64
}

func (r *randomAccessReader) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}
	chunk, err := r.src.ReadAt(r.ctx, r.offset, len(p))
	if err != nil {
		return 0, err
	}
	if len(chunk) == 0 {
		return 0, io.EOF
	}
	n := copy(p, chunk)
	r.offset += uint64(n)
	return n, nil
}
