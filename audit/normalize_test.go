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

package audit_test

import (
	"bytes"
	"context"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Ismail-elkorchi/bytefold/archive"
	"github.com/Ismail-elkorchi/bytefold/audit"
	"github.com/Ismail-elkorchi/bytefold/ioutil"
	"github.com/Ismail-elkorchi/bytefold/limits"
	"github.com/Ismail-elkorchi/bytefold/tar"
)

var _ = Describe("Normalize", func() {
	ctx := context.Background()

	It("errors on exact duplicate names under the error policy", func() {
		raw := buildTar(map[string]string{"a.txt": "one"}, []string{"a.txt", "a.txt"})
		a, err := archive.Open(ctx, ioutil.NewByteSource(raw))
		Expect(err).ToNot(HaveOccurred())

		sink := ioutil.NewMemSink()
		_, err = audit.Normalize(ctx, a, sink, audit.NormalizePolicy{
			OnDuplicate:     audit.CollisionError,
			OnCaseCollision: audit.CollisionError,
			OnSymlink:       audit.DropDrop,
			OnUnsupported:   audit.DropDrop,
		}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("renames the later of two duplicate names under the rename policy", func() {
		raw := buildTar(map[string]string{"a.txt": "one"}, []string{"a.txt", "a.txt"})
		a, err := archive.Open(ctx, ioutil.NewByteSource(raw))
		Expect(err).ToNot(HaveOccurred())

		sink := ioutil.NewMemSink()
		result, err := audit.Normalize(ctx, a, sink, audit.NormalizePolicy{
			OnDuplicate:     audit.CollisionRename,
			OnCaseCollision: audit.CollisionRename,
			OnSymlink:       audit.DropDrop,
			OnUnsupported:   audit.DropDrop,
		}, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Written).To(Equal(2))
		Expect(result.Renamed).To(BeNumerically(">=", 1))

		names := readTarNames(ioutil.MemSinkBytes(sink))
		Expect(names).To(ContainElement("a.txt"))
		Expect(names).To(ContainElement("a.txt.1"))
	})

	It("zeroes mtimes and sorts by name in deterministic mode", func() {
		raw := buildTar(map[string]string{
			"b.txt": "two",
			"a.txt": "one",
		}, []string{"b.txt", "a.txt"})
		a, err := archive.Open(ctx, ioutil.NewByteSource(raw))
		Expect(err).ToNot(HaveOccurred())

		sink := ioutil.NewMemSink()
		result, err := audit.Normalize(ctx, a, sink, audit.NormalizePolicy{
			OnDuplicate:     audit.CollisionError,
			OnCaseCollision: audit.CollisionError,
			OnSymlink:       audit.DropDrop,
			OnUnsupported:   audit.DropDrop,
			Deterministic:   true,
		}, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Written).To(Equal(2))

		names := readTarNames(ioutil.MemSinkBytes(sink))
		Expect(names).To(Equal([]string{"a.txt", "b.txt"}))
	})
})

func readTarNames(raw []byte) []string {
	r := tar.NewReader(bytes.NewReader(raw), limits.Default)
	var names []string
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		Expect(err).ToNot(HaveOccurred())
		names = append(names, hdr.Name)
	}
	return names
}
