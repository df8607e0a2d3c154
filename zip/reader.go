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

package zip

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/Ismail-elkorchi/bytefold/ioutil"
	"github.com/Ismail-elkorchi/bytefold/limits"
)

// Config bounds a Reader's resource usage and selects the strictness
// profile used while parsing the central directory.
type Config struct {
	Limits limits.Config
	Strict bool // true rejects duplicate EOCDs and EOCDs that don't abut EOF
}

// Reader exposes a parsed ZIP central directory over a seekable source.
type Reader struct {
	src     ioutil.RandomAccess
	cfg     Config
	Entries []*Entry
	Comment string
}

// directoryEnd is the merged view of the 22-byte EOCD and, when present,
// the ZIP64 EOCD record it points to.
type directoryEnd struct {
	totalEntries    uint64
	directorySize   uint64
	directoryOffset uint64
	comment         string
}

// Open parses src's EOCD, optional ZIP64 locator/record, and central
// directory, returning a Reader ready to stream entries. Grounded on the
// minio zipindex package's tail-scan/EOCD64 technique, rewritten against
// bytefold's RandomAccess/errs/limits conventions instead of an io.ReaderAt
// and sentinel errors.
func Open(ctx context.Context, src ioutil.RandomAccess, cfg Config) (*Reader, error) {
	cfg.Limits = cfg.Limits.ApplyDefaults(limits.Default)
	size, err := src.Size(ctx)
	if err != nil {
		return nil, err
	}

	window := cfg.Limits.MaxZipEOCDSearchWindow.Uint64()
	if window > size {
		window = size
	}
	tail, err := readExactZip(ctx, src, size-window, int(window))
	if err != nil {
		return nil, err
	}

	eocdRelOffset, dup := findEOCD(tail)
	if eocdRelOffset < 0 {
		return nil, errs.New(errs.KindStructural, errs.CodeZipEOCDNotFound, "zip: end of central directory not found")
	}
	if dup && cfg.Strict {
		return nil, errs.New(errs.KindStructural, errs.CodeZipEOCDDuplicate, "zip: duplicate end-of-central-directory signature")
	}
	eocdAbsOffset := size - window + uint64(eocdRelOffset)
	if cfg.Strict && eocdAbsOffset+eocdLen != size {
		if !eocdCommentFillsToEOF(tail[eocdRelOffset:], size-eocdAbsOffset) {
			return nil, errs.New(errs.KindStructural, errs.CodeZipTruncated, "zip: trailing bytes after end of central directory")
		}
	}

	dirEnd, err := parseEOCD(ctx, src, tail[eocdRelOffset:], eocdAbsOffset)
	if err != nil {
		return nil, err
	}

	if dirEnd.directorySize > cfg.Limits.MaxZipCentralDirBytes.Uint64() {
		return nil, limits.LimitError(errs.CodeCompressionResourceLimit, "ZipCentralDirBytes", dirEnd.directorySize, cfg.Limits.MaxZipCentralDirBytes.Uint64())
	}
	if uint64(len(dirEnd.comment)) > cfg.Limits.MaxZipCommentBytes.Uint64() {
		return nil, limits.LimitError(errs.CodeCompressionResourceLimit, "ZipCommentBytes", uint64(len(dirEnd.comment)), cfg.Limits.MaxZipCommentBytes.Uint64())
	}

	dirBytes, err := readExactZip(ctx, src, dirEnd.directoryOffset, int(dirEnd.directorySize))
	if err != nil {
		return nil, err
	}

	entries, err := parseCentralDirectory(dirBytes, dirEnd.totalEntries, cfg)
	if err != nil {
		return nil, err
	}

	return &Reader{src: src, cfg: cfg, Entries: entries, Comment: dirEnd.comment}, nil
}

func readExactZip(ctx context.Context, src ioutil.RandomAccess, offset uint64, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	out := make([]byte, 0, length)
	for len(out) < length {
		chunk, err := src.ReadAt(ctx, offset+uint64(len(out)), length-len(out))
		if len(chunk) > 0 {
			out = append(out, chunk...)
		}
		if err != nil {
			if err == io.EOF && len(out) == length {
				break
			}
			return nil, err
		}
		if len(chunk) == 0 {
			return nil, io.ErrUnexpectedEOF
		}
	}
	return out, nil
}

// findEOCD scans buf backward for the EOCD signature, returning the last
// (i.e. rightmost) match's offset within buf and whether a second,
// earlier match also exists (a signature collision inside a comment, or a
// genuinely duplicated record).
func findEOCD(buf []byte) (offset int, duplicate bool) {
	sig := []byte{'P', 'K', 0x05, 0x06}
	offset = -1
	for i := len(buf) - eocdLen; i >= 0; i-- {
		if bytes.Equal(buf[i:i+4], sig) {
			commentLen := int(binary.LittleEndian.Uint16(buf[i+20 : i+22]))
			if i+eocdLen+commentLen > len(buf) {
				continue
			}
			if offset < 0 {
				offset = i
			} else {
				duplicate = true
				return offset, duplicate
			}
		}
	}
	return offset, duplicate
}

func eocdCommentFillsToEOF(eocdAndTail []byte, toEOF uint64) bool {
	commentLen := uint64(binary.LittleEndian.Uint16(eocdAndTail[20:22]))
	return eocdLen+commentLen == toEOF
}

func parseEOCD(ctx context.Context, src ioutil.RandomAccess, buf []byte, eocdAbsOffset uint64) (*directoryEnd, error) {
	b := buf[4:] // skip signature
	_ = binary.LittleEndian.Uint16(b[0:2]) // disk number, multi-disk unsupported
	_ = binary.LittleEndian.Uint16(b[2:4]) // disk with central directory start
	_ = binary.LittleEndian.Uint16(b[4:6]) // entries on this disk
	totalEntries := uint64(binary.LittleEndian.Uint16(b[6:8]))
	directorySize := uint64(binary.LittleEndian.Uint32(b[8:12]))
	directoryOffset := uint64(binary.LittleEndian.Uint32(b[12:16]))
	commentLen := int(binary.LittleEndian.Uint16(b[16:18]))
	comment := ""
	if 18+commentLen <= len(b) {
		comment = decodeCP437(b[18 : 18+commentLen])
	}

	d := &directoryEnd{totalEntries: totalEntries, directorySize: directorySize, directoryOffset: directoryOffset, comment: comment}

	needsZip64 := totalEntries == 0xFFFF || directorySize == 0xFFFFFFFF || directoryOffset == 0xFFFFFFFF
	if !needsZip64 {
		return d, nil
	}

	locOffset := eocdAbsOffset - eocd64LocatorLen
	locBytes, err := readExactZip(ctx, src, locOffset, eocd64LocatorLen)
	if err != nil {
		return nil, errs.New(errs.KindStructural, errs.CodeZipEOCDNotFound, "zip: missing zip64 locator").Wrap(err)
	}
	if binary.LittleEndian.Uint32(locBytes[0:4]) != sigEOCD64Locator {
		return nil, errs.New(errs.KindStructural, errs.CodeZipBadSignature, "zip: bad zip64 locator signature")
	}
	if binary.LittleEndian.Uint32(locBytes[4:8]) != 0 {
		return nil, errs.New(errs.KindUnsupported, errs.CodeZipMultiDisk, "zip: multi-disk archives are unsupported")
	}
	eocd64Offset := binary.LittleEndian.Uint64(locBytes[8:16])
	if binary.LittleEndian.Uint32(locBytes[16:20]) != 1 {
		return nil, errs.New(errs.KindUnsupported, errs.CodeZipMultiDisk, "zip: multi-disk archives are unsupported")
	}

	e64Bytes, err := readExactZip(ctx, src, eocd64Offset, eocd64Len)
	if err != nil {
		return nil, errs.New(errs.KindStructural, errs.CodeZipEOCDNotFound, "zip: truncated zip64 end-of-central-directory record").Wrap(err)
	}
	if binary.LittleEndian.Uint32(e64Bytes[0:4]) != sigEOCD64 {
		return nil, errs.New(errs.KindStructural, errs.CodeZipBadSignature, "zip: bad zip64 end-of-central-directory signature")
	}
	eb := e64Bytes[12:] // skip signature + record size (uint64)
	_ = binary.LittleEndian.Uint16(eb[0:2])  // version made by
	_ = binary.LittleEndian.Uint16(eb[2:4])  // version needed
	_ = binary.LittleEndian.Uint32(eb[4:8])  // disk number
	_ = binary.LittleEndian.Uint32(eb[8:12]) // disk with central directory start
	_ = binary.LittleEndian.Uint64(eb[12:20]) // entries on this disk
	d.totalEntries = binary.LittleEndian.Uint64(eb[20:28])
	d.directorySize = binary.LittleEndian.Uint64(eb[28:36])
	d.directoryOffset = binary.LittleEndian.Uint64(eb[36:44])
	return d, nil
}

// parseCentralDirectory walks the buffered central directory bytes,
// producing one Entry per record, applying ZIP64/Unicode/timestamp extras
// and resolving AES method-99 records' real inner method.
func parseCentralDirectory(buf []byte, wantEntries uint64, cfg Config) ([]*Entry, error) {
	prealloc := wantEntries
	if prealloc > cfg.Limits.MaxEntries {
		prealloc = cfg.Limits.MaxEntries
	}
	entries := make([]*Entry, 0, prealloc)
	for len(buf) > 0 {
		if uint64(len(entries)) >= cfg.Limits.MaxEntries {
			return nil, limits.LimitError(errs.CodeCompressionResourceLimit, "Entries", uint64(len(entries))+1, cfg.Limits.MaxEntries)
		}
		if len(buf) < centralDirHeaderLen {
			return nil, errs.New(errs.KindStructural, errs.CodeZipTruncated, "zip: truncated central directory record")
		}
		if binary.LittleEndian.Uint32(buf[0:4]) != sigCentralDir {
			return nil, errs.New(errs.KindStructural, errs.CodeZipBadSignature, "zip: bad central directory signature")
		}
		b := buf[4:]
		_ = binary.LittleEndian.Uint16(b[0:2]) // version made by
		_ = binary.LittleEndian.Uint16(b[2:4]) // version needed
		flags := GeneralFlags(binary.LittleEndian.Uint16(b[4:6]))
		method := Method(binary.LittleEndian.Uint16(b[6:8]))
		modTime := binary.LittleEndian.Uint16(b[8:10])
		modDate := binary.LittleEndian.Uint16(b[10:12])
		crc := binary.LittleEndian.Uint32(b[12:16])
		compSize := uint64(binary.LittleEndian.Uint32(b[16:20]))
		uncompSize := uint64(binary.LittleEndian.Uint32(b[20:24]))
		nameLen := int(binary.LittleEndian.Uint16(b[24:26]))
		extraLen := int(binary.LittleEndian.Uint16(b[26:28]))
		commentLen := int(binary.LittleEndian.Uint16(b[28:30]))
		_ = binary.LittleEndian.Uint16(b[30:32]) // disk number start
		_ = binary.LittleEndian.Uint16(b[32:34]) // internal attrs
		externalAttrs := binary.LittleEndian.Uint32(b[34:38])
		headerOffset := uint64(binary.LittleEndian.Uint32(b[38:42]))

		need := centralDirHeaderLen + nameLen + extraLen + commentLen
		if len(buf) < need {
			return nil, errs.New(errs.KindStructural, errs.CodeZipTruncated, "zip: truncated central directory record")
		}
		rawName := buf[centralDirHeaderLen : centralDirHeaderLen+nameLen]
		extraBytes := buf[centralDirHeaderLen+nameLen : centralDirHeaderLen+nameLen+extraLen]
		rawComment := buf[centralDirHeaderLen+nameLen+extraLen : need]
		buf = buf[need:]

		e := &Entry{
			Flags:             flags,
			Method:            method,
			CRC32:             crc,
			CompressedSize:    compSize,
			UncompressedSize:  uncompSize,
			LocalHeaderOffset: headerOffset,
			ExternalAttrs:     externalAttrs,
			RawName:           append([]byte(nil), rawName...),
			rawModTime:        modTime,
		}

		if flags.utf8() {
			e.Name = string(rawName)
			e.NameSource = "utf8-flag"
		} else {
			e.Name = decodeCP437(rawName)
			e.NameSource = "cp437"
		}
		e.Comment = decodeCP437(rawComment)

		needUSize := uncompSize == sentinel32
		needCSize := compSize == sentinel32
		needOffset := headerOffset == sentinel32
		if needUSize || needCSize || needOffset {
			e.IsZip64 = true
		}

		e.ModTime = msDosToTime(modDate, modTime)

		for _, f := range parseExtras(extraBytes) {
			switch f.tag {
			case extraZip64:
				if !applyZip64Extra(e, f.data, needUSize, needCSize, needOffset) {
					return nil, errs.New(errs.KindStructural, errs.CodeZipBadSignature, "zip: malformed zip64 extra")
				}
			case extraUnicodePath:
				if s, ok := unicodeExtraOverride(f.data, rawName); ok {
					e.Name = s
					e.NameSource = "unicode-extra"
				}
			case extraUnicodeCmt:
				if s, ok := unicodeExtraOverride(f.data, rawComment); ok {
					e.Comment = s
				}
			case extraExtTime:
				if t, ok := extendedTimestamp(f.data); ok {
					e.ModTime = t
				}
			case extraAESHeader:
				if aesf, ok := parseAESExtra(f.data); ok {
					e.aesStrength = aesf.strength
					e.aesVendorVersion = aesf.vendorVersion
					e.aesRealMethod = aesf.realMethod
				}
			}
		}

		entries = append(entries, e)
	}
	if uint64(len(entries)) != wantEntries && wantEntries <= 0xFFFF {
		// The 16-bit entry count can legitimately be truncated modulo
		// 65536 by non-ZIP64 writers; only treat a mismatch as fatal when
		// it cannot be explained by that wraparound.
		if uint64(len(entries))%0x10000 != wantEntries%0x10000 {
			return nil, errs.New(errs.KindStructural, errs.CodeZipBadSignature, "zip: central directory entry count mismatch")
		}
	}
	return entries, nil
}
