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
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/Ismail-elkorchi/bytefold/limits"
)

// Reader streams ustar + PAX entries from an underlying io.Reader, one
// header-then-data pair at a time, in the same pull-driven style as the
// codec package's single-file decoders.
type Reader struct {
	r       io.Reader
	cfg     limits.Config
	pending int64 // unread data bytes in the current entry
	padding int64 // padding bytes to skip once pending reaches 0
}

// NewReader returns a Reader over r, applying cfg's entry-count and
// per-entry size ceilings as successive entries are read.
func NewReader(r io.Reader, cfg limits.Config) *Reader {
	return &Reader{r: r, cfg: cfg.ApplyDefaults(limits.Default)}
}

// Next advances past any unread bytes of the previous entry and returns the
// next entry's header, folding in any preceding PAX extended-header
// overrides and GNU long-name/long-link records.
func (tr *Reader) Next() (*Header, error) {
	if err := tr.skipRemainder(); err != nil {
		return nil, err
	}

	var paxRecords map[string]string
	var longName, longLink string

	for {
		block, err := tr.readBlock()
		if err != nil {
			return nil, err
		}
		if isZeroBlock(block) {
			next, err := tr.readBlock()
			if err == io.EOF || (err == nil && isZeroBlock(next)) {
				return nil, io.EOF
			}
			return nil, errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: zero block not at end of archive")
		}

		hdr, err := parseHeaderBlock(block)
		if err != nil {
			return nil, err
		}

		switch hdr.Typeflag {
		case TypePaxGlobal:
			if _, err := tr.discardEntryData(hdr.Size); err != nil {
				return nil, err
			}
			continue
		case TypePaxLocal:
			data, err := tr.readEntryData(hdr.Size)
			if err != nil {
				return nil, err
			}
			records, err := parsePAXRecords(data)
			if err != nil {
				return nil, err
			}
			paxRecords = records
			continue
		case TypeGNULongName:
			data, err := tr.readEntryData(hdr.Size)
			if err != nil {
				return nil, err
			}
			longName = cstring(data)
			continue
		case TypeGNULongLink:
			data, err := tr.readEntryData(hdr.Size)
			if err != nil {
				return nil, err
			}
			longLink = cstring(data)
			continue
		case TypeGNUSparse:
			// GNU sparse-file reconstruction is out of scope; surface the
			// entry so the caller's audit pass can flag it rather than
			// silently misreading the sparse data stream as a flat file.
			return nil, errs.New(errs.KindUnsupported, errs.CodeTarUnsupported, "tar: GNU sparse entries are not supported").
				WithContext("name", hdr.Name)
		}

		if longName != "" {
			hdr.Name = longName
		}
		if longLink != "" {
			hdr.Linkname = longLink
		}
		if v, ok := paxRecords["size"]; ok {
			if n, perr := strconv.ParseInt(v, 10, 64); perr != nil || n < 0 {
				return nil, errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: PAX size record out of range").WithContext("size", v)
			}
		}
		applyPAXRecords(hdr, paxRecords)

		if err := checkPathTraversal(hdr.Name); err != nil {
			return nil, err
		}
		if uint64(hdr.Size) > tr.cfg.MaxEntryUncompressed.Uint64() {
			return nil, limits.LimitError(errs.CodeCompressionResourceLimit, "EntryUncompressed", uint64(hdr.Size), tr.cfg.MaxEntryUncompressed.Uint64())
		}

		tr.pending = hdr.Size
		tr.padding = paddingFor(hdr.Size)
		return hdr, nil
	}
}

// Read reads from the current entry's data region, returning io.EOF once
// its declared size bytes have been delivered.
func (tr *Reader) Read(p []byte) (int, error) {
	if tr.pending <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > tr.pending {
		p = p[:tr.pending]
	}
	n, err := tr.r.Read(p)
	tr.pending -= int64(n)
	if err == io.EOF && tr.pending > 0 {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

func (tr *Reader) skipRemainder() error {
	if tr.pending > 0 {
		if _, err := tr.discardEntryData(tr.pending); err != nil {
			return err
		}
		tr.pending = 0
	}
	if tr.padding > 0 {
		if _, err := io.CopyN(io.Discard, tr.r, tr.padding); err != nil {
			return errs.New(errs.KindStructural, errs.CodeTarTruncated, "tar: truncated padding").Wrap(err)
		}
		tr.padding = 0
	}
	return nil
}

func (tr *Reader) readBlock() ([]byte, error) {
	block := make([]byte, blockSize)
	if _, err := io.ReadFull(tr.r, block); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errs.New(errs.KindStructural, errs.CodeTarTruncated, "tar: truncated header block").Wrap(err)
	}
	return block, nil
}

// readEntryData reads size bytes (a PAX/GNU metadata record) plus its
// trailing padding, without going through the public Read/pending state.
func (tr *Reader) readEntryData(size int64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(tr.r, buf); err != nil {
		return nil, errs.New(errs.KindStructural, errs.CodeTarTruncated, "tar: truncated PAX/GNU record").Wrap(err)
	}
	if pad := paddingFor(size); pad > 0 {
		if _, err := io.CopyN(io.Discard, tr.r, pad); err != nil {
			return nil, errs.New(errs.KindStructural, errs.CodeTarTruncated, "tar: truncated PAX/GNU record padding").Wrap(err)
		}
	}
	return buf, nil
}

func (tr *Reader) discardEntryData(size int64) (int64, error) {
	n, err := io.CopyN(io.Discard, tr.r, size)
	if err != nil {
		return n, errs.New(errs.KindStructural, errs.CodeTarTruncated, "tar: truncated entry data").Wrap(err)
	}
	if pad := paddingFor(size); pad > 0 {
		if _, err := io.CopyN(io.Discard, tr.r, pad); err != nil {
			return n, errs.New(errs.KindStructural, errs.CodeTarTruncated, "tar: truncated entry padding").Wrap(err)
		}
	}
	return n, nil
}

func paddingFor(size int64) int64 {
	if size <= 0 {
		return 0
	}
	rem := size % blockSize
	if rem == 0 {
		return 0
	}
	return blockSize - rem
}

func isZeroBlock(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// parseHeaderBlock decodes one 512-byte ustar header into a Header,
// validating the checksum field against the block's actual contents.
func parseHeaderBlock(block []byte) (*Header, error) {
	stored, err := parseNumeric(block[offChksum : offChksum+lenChksum])
	if err != nil {
		return nil, err
	}
	if stored != checksum(block) {
		return nil, errs.New(errs.KindIntegrity, errs.CodeTarChecksum, "tar: header checksum mismatch")
	}

	mode, err := parseNumeric(block[offMode : offMode+lenMode])
	if err != nil {
		return nil, err
	}
	uid, err := parseNumeric(block[offUID : offUID+lenUID])
	if err != nil {
		return nil, err
	}
	gid, err := parseNumeric(block[offGID : offGID+lenGID])
	if err != nil {
		return nil, err
	}
	size, err := parseNumeric(block[offSize : offSize+lenSize])
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: negative size field")
	}
	mtime, err := parseNumeric(block[offMtime : offMtime+lenMtime])
	if err != nil {
		return nil, err
	}
	devmajor, _ := parseNumeric(block[offDevmajor : offDevmajor+lenDevmajor])
	devminor, _ := parseNumeric(block[offDevminor : offDevminor+lenDevminor])

	name := cstring(block[offName : offName+lenName])
	if prefix := cstring(block[offPrefix : offPrefix+lenPrefix]); prefix != "" {
		name = prefix + "/" + name
	}

	return &Header{
		Name:     name,
		Linkname: cstring(block[offLinkname : offLinkname+lenLinkname]),
		Size:     size,
		Mode:     mode,
		UID:      uid,
		GID:      gid,
		Uname:    cstring(block[offUname : offUname+lenUname]),
		Gname:    cstring(block[offGname : offGname+lenGname]),
		ModTime:  time.Unix(mtime, 0).UTC(),
		Typeflag: block[offTypeflag],
		Devmajor: devmajor,
		Devminor: devminor,
	}, nil
}

// parsePAXRecords splits a PAX extended-header body into its key/value
// records: each record is "<len> <key>=<value>\n" where len is the
// record's own decimal length including its own digits, the space, and
// the trailing newline.
func parsePAXRecords(data []byte) (map[string]string, error) {
	out := make(map[string]string)
	for len(data) > 0 {
		sp := indexByte(data, ' ')
		if sp < 0 {
			return nil, errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: malformed PAX record length")
		}
		recLen, err := strconv.Atoi(string(data[:sp]))
		if err != nil || recLen <= sp || recLen > len(data) {
			return nil, errs.New(errs.KindStructural, errs.CodeTarPaxOverflow, "tar: PAX record length out of range")
		}
		record := data[sp+1 : recLen-1] // drop the trailing '\n'
		eq := indexByte(record, '=')
		if eq < 0 {
			return nil, errs.New(errs.KindStructural, errs.CodeTarBadHeader, "tar: malformed PAX record")
		}
		out[string(record[:eq])] = string(record[eq+1:])
		data = data[recLen:]
	}
	return out, nil
}

func applyPAXRecords(hdr *Header, records map[string]string) {
	for k, v := range records {
		switch k {
		case "path":
			hdr.Name = v
		case "linkpath":
			hdr.Linkname = v
		case "size":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				hdr.Size = n
			}
		case "mtime":
			if sec, fracStr, ok := strings.Cut(v, "."); ok {
				s, _ := strconv.ParseInt(sec, 10, 64)
				var nsec int64
				if fracStr != "" {
					pad := fracStr + strings.Repeat("0", 9-len(fracStr))
					nsec, _ = strconv.ParseInt(pad[:9], 10, 64)
				}
				hdr.ModTime = time.Unix(s, nsec).UTC()
			} else if s, err := strconv.ParseInt(v, 10, 64); err == nil {
				hdr.ModTime = time.Unix(s, 0).UTC()
			}
		case "uid":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				hdr.UID = n
			}
		case "gid":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				hdr.GID = n
			}
		case "uname":
			hdr.Uname = v
		case "gname":
			hdr.Gname = v
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// checkPathTraversal rejects names escaping an extraction root: ".."
// segments, absolute paths, and Windows drive letters, per the mandatory
// audit/extraction safety check.
func checkPathTraversal(name string) error {
	if name == "" {
		return errs.New(errs.KindSecurity, errs.CodeTarPathTraversal, "tar: empty entry name")
	}
	clean := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(clean, "/") {
		return errs.New(errs.KindSecurity, errs.CodeTarPathTraversal, "tar: absolute path").WithContext("name", name)
	}
	if len(clean) >= 2 && clean[1] == ':' {
		return errs.New(errs.KindSecurity, errs.CodeTarPathTraversal, "tar: drive-letter path").WithContext("name", name)
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return errs.New(errs.KindSecurity, errs.CodeTarPathTraversal, "tar: path traversal segment").WithContext("name", name)
		}
	}
	return nil
}
