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

package tar

import (
	"fmt"
	"io"

	"github.com/Ismail-elkorchi/bytefold/errs"
)

// Writer emits ustar + PAX entries to an underlying io.Writer, writing a
// PAX extended header ahead of the real one for names and link targets
// over 100 bytes and for sub-second mtimes; numeric fields too large for
// their octal slot are written in base-256 instead.
type Writer struct {
	w       io.Writer
	pending int64 // bytes still owed for the current entry's declared size
	pad     int64 // padding still owed once pending reaches 0
	closed  bool
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader starts a new entry, writing any PAX extended header its
// fields require ahead of the real ustar header.
func (tw *Writer) WriteHeader(hdr *Header) error {
	if tw.closed {
		return errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: write to closed writer")
	}
	if tw.pending != 0 {
		return errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: previous entry not fully written")
	}
	if err := checkPathTraversal(hdr.Name); err != nil {
		return err
	}

	records := paxOverridesFor(hdr)
	if len(records) > 0 {
		if err := tw.writePAXHeader(records); err != nil {
			return err
		}
	}

	block := buildHeaderBlock(hdr)
	if _, err := tw.w.Write(block); err != nil {
		return err
	}
	tw.pending = hdr.Size
	tw.pad = paddingFor(hdr.Size)
	return nil
}

// Write streams entry payload bytes, erroring once more than the header's
// declared Size has been written. Once the declared size has been fully
// written, Write transparently flushes the block-alignment padding so the
// next WriteHeader call starts on a clean 512-byte boundary.
func (tw *Writer) Write(p []byte) (int, error) {
	if int64(len(p)) > tw.pending {
		return 0, errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: write exceeds declared entry size")
	}
	n, err := tw.w.Write(p)
	tw.pending -= int64(n)
	if err == nil && tw.pending == 0 && tw.pad > 0 {
		zeros := make([]byte, tw.pad)
		if _, werr := tw.w.Write(zeros); werr != nil {
			return n, werr
		}
		tw.pad = 0
	}
	return n, err
}

// Close flushes a trailing two-block end-of-archive marker.
func (tw *Writer) Close() error {
	if tw.closed {
		return nil
	}
	if tw.pending != 0 {
		return errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: entry closed before its declared size was written")
	}
	var footer [2 * blockSize]byte
	if _, err := tw.w.Write(footer[:]); err != nil {
		return err
	}
	tw.closed = true
	return nil
}

// paxOverridesFor reports which fields of hdr cannot be represented in a
// plain ustar name field and travel as PAX records: names and link
// targets over 100 bytes, and any sub-second mtime.
func paxOverridesFor(hdr *Header) map[string]string {
	records := map[string]string{}
	if len(hdr.Name) > lenName {
		records["path"] = hdr.Name
	}
	if len(hdr.Linkname) > lenLinkname {
		records["linkpath"] = hdr.Linkname
	}
	if ns := hdr.ModTime.Nanosecond(); ns != 0 {
		records["mtime"] = fmt.Sprintf("%d.%09d", hdr.ModTime.Unix(), ns)
	}
	return records
}

// splitsIntoPrefix reports whether name fits the ustar prefix+"/"+name
// convention (prefix <= 155 bytes, name component <= 100 bytes) without a
// PAX extension.
func splitsIntoPrefix(name string) bool {
	prefix, base := splitUstarPath(name)
	return len(prefix) <= lenPrefix && len(base) <= lenName
}

// splitUstarPath divides name at the last '/' that leaves a base component
// of at most 100 bytes, the same rule stdlib archive/tar's format splitter
// uses for the ustar prefix field.
func splitUstarPath(name string) (prefix, base string) {
	if len(name) <= lenName {
		return "", name
	}
	i := len(name) - 1
	for i >= 0 && name[i] != '/' {
		i--
	}
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

func (tw *Writer) writePAXHeader(records map[string]string) error {
	var body []byte
	for k, v := range records {
		body = append(body, encodePAXRecord(k, v)...)
	}
	paxHdr := &Header{
		Name:     "PaxHeaders.0/pax",
		Size:     int64(len(body)),
		Typeflag: TypePaxLocal,
		Mode:     0644,
	}
	block := buildHeaderBlock(paxHdr)
	if _, err := tw.w.Write(block); err != nil {
		return err
	}
	if _, err := tw.w.Write(body); err != nil {
		return err
	}
	if pad := paddingFor(int64(len(body))); pad > 0 {
		zeros := make([]byte, pad)
		if _, err := tw.w.Write(zeros); err != nil {
			return err
		}
	}
	return nil
}

// encodePAXRecord renders one "<len> <key>=<value>\n" record. The length
// prefix includes its own digit count, so it is found by fixed point: seed
// a guess, recompute the total with that guess's digit width, and repeat
// until the width stops changing (at most one extra iteration, right at a
// power-of-ten boundary).
func encodePAXRecord(key, value string) []byte {
	suffixLen := len(key) + len(value) + 2 // '=' and '\n'
	n := suffixLen + 1
	for {
		total := len(fmt.Sprintf("%d", n)) + 1 + suffixLen
		if total == n {
			break
		}
		n = total
	}
	return []byte(fmt.Sprintf("%d %s=%s\n", n, key, value))
}

// buildHeaderBlock encodes hdr into one fixed 512-byte ustar block,
// splitting an over-long name into the prefix+name pair when it fits that
// convention, as a fallback for readers that ignore the PAX "path" record
// written ahead of it.
func buildHeaderBlock(hdr *Header) []byte {
	block := make([]byte, blockSize)

	prefix, base := splitUstarPath(hdr.Name)
	if len(base) > lenName || len(prefix) > lenPrefix {
		// Too long even for ustar's prefix extension; the caller is
		// expected to have already emitted a PAX "path" override, so the
		// on-disk name here is only a (truncated) fallback for readers
		// that ignore PAX.
		base = truncate(hdr.Name, lenName)
		prefix = ""
	}
	copy(block[offName:offName+lenName], base)
	copy(block[offPrefix:offPrefix+lenPrefix], prefix)
	copy(block[offLinkname:offLinkname+lenLinkname], truncate(hdr.Linkname, lenLinkname))
	copy(block[offUname:offUname+lenUname], truncate(hdr.Uname, lenUname))
	copy(block[offGname:offGname+lenGname], truncate(hdr.Gname, lenGname))
	copy(block[offMagic:offMagic+lenMagic], ustarMagic)
	copy(block[offVersion:offVersion+lenVersion], "00")

	copy(block[offMode:offMode+lenMode], formatOctal(hdr.Mode, lenMode))
	copy(block[offUID:offUID+lenUID], formatOctal(hdr.UID, lenUID))
	copy(block[offGID:offGID+lenGID], formatOctal(hdr.GID, lenGID))
	copy(block[offSize:offSize+lenSize], formatOctal(hdr.Size, lenSize))
	copy(block[offMtime:offMtime+lenMtime], formatOctal(hdr.ModTime.Unix(), lenMtime))
	copy(block[offDevmajor:offDevmajor+lenDevmajor], formatOctal(hdr.Devmajor, lenDevmajor))
	copy(block[offDevminor:offDevminor+lenDevminor], formatOctal(hdr.Devminor, lenDevminor))

	typeflag := hdr.Typeflag
	if typeflag == 0 {
		typeflag = TypeRegular
	}
	block[offTypeflag] = typeflag

	copy(block[offChksum:offChksum+lenChksum], []byte("        "))
	copy(block[offChksum:offChksum+lenChksum], formatChecksum(checksum(block)))
	return block
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
