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

// Package zip reads and writes the ZIP container format per APPNOTE 6.3.10:
// EOCD/ZIP64 discovery, central-directory parsing with Info-ZIP Unicode
// path/comment fallback, ZipCrypto and WinZip AES decryption, and a
// seekable writer that can patch local headers in place.
package zip

import (
	"time"

	"github.com/Ismail-elkorchi/bytefold/codec"
)

const (
	sigLocalFile      = 0x04034b50
	sigCentralDir     = 0x02014b50
	sigEOCD           = 0x06054b50
	sigEOCD64         = 0x06064b50
	sigEOCD64Locator  = 0x07064b50
	sigDataDescriptor = 0x08074b50
)

const (
	localFileHeaderLen  = 30
	centralDirHeaderLen = 46
	eocdLen             = 22
	eocd64Len           = 56
	eocd64LocatorLen    = 20
	dataDescriptorLen   = 12 // CRC32 + compressed size + uncompressed size, 32-bit form
)

// Extra field tags relevant to this package.
const (
	extraZip64       = 0x0001
	extraUnicodePath = 0x7075
	extraUnicodeCmt  = 0x6375
	extraNTFS        = 0x000a
	extraUnix        = 0x000d
	extraInfoZipUnix = 0x5855
	extraExtTime     = 0x5455
	extraAESHeader   = 0x9901
)

// sentinel32 marks a 32-bit field as "see the ZIP64 extra instead".
const sentinel32 = 0xFFFFFFFF

// Method identifies a ZIP entry's compression method id (APPNOTE section
// 4.4.5), distinct from codec.Algorithm since not every method id maps
// 1:1 onto a codec transform (method 99 signals WinZip AES, whose real
// payload method lives inside the 0x9901 extra).
type Method uint16

const (
	MethodStore     Method = 0
	MethodDeflate   Method = 8
	MethodDeflate64 Method = 9
	MethodBzip2     Method = 12
	MethodLZMA      Method = 14
	MethodZstd      Method = 93
	MethodXZ        Method = 95
	MethodAES       Method = 99
)

// algorithm maps a ZIP method id to the codec transform that decodes it.
// Deflate64 and raw LZMA1-in-zip are both out of scope here; LZMA1 only
// ever appears inside XZ, never as a bare ZIP method.
func (m Method) algorithm() (codec.Algorithm, bool) {
	switch m {
	case MethodStore:
		return codec.Store, true
	case MethodDeflate:
		return codec.Deflate, true
	case MethodBzip2:
		return codec.Bzip2, true
	case MethodZstd:
		return codec.Zstd, true
	case MethodXZ:
		return codec.XZ, true
	default:
		return codec.None, false
	}
}

// GeneralFlags bitset, APPNOTE section 4.4.4.
type GeneralFlags uint16

const (
	flagEncrypted      GeneralFlags = 1 << 0
	flagDataDescriptor GeneralFlags = 1 << 3
	flagStrongEncrypt  GeneralFlags = 1 << 6
	flagUTF8           GeneralFlags = 1 << 11
)

func (f GeneralFlags) encrypted() bool      { return f&flagEncrypted != 0 }
func (f GeneralFlags) hasDescriptor() bool  { return f&flagDataDescriptor != 0 }
func (f GeneralFlags) utf8() bool           { return f&flagUTF8 != 0 }

// AESStrength is the WinZip AES key length selector carried in the 0x9901
// extra's vendor strength byte.
type AESStrength byte

const (
	AES128 AESStrength = 1
	AES192 AESStrength = 2
	AES256 AESStrength = 3
)

func (s AESStrength) keyLen() int {
	switch s {
	case AES128:
		return 16
	case AES192:
		return 24
	case AES256:
		return 32
	default:
		return 0
	}
}

func (s AESStrength) saltLen() int {
	switch s {
	case AES128:
		return 8
	case AES192:
		return 12
	case AES256:
		return 16
	default:
		return 0
	}
}

// Entry is the read view of one ZIP directory entry, per the archive entry
// data model: logical name, raw bytes, sizes, offset, times, and the
// markers normalize/audit need without re-parsing the central directory.
type Entry struct {
	Name               string
	NameSource         string // "utf8-flag", "cp437", "unicode-extra"
	RawName            []byte
	Comment            string
	Method             Method
	Flags              GeneralFlags
	CRC32              uint32
	CompressedSize     uint64
	UncompressedSize   uint64
	LocalHeaderOffset  uint64
	ModTime            time.Time
	IsZip64            bool
	ExternalAttrs      uint32
	rawModTime         uint16 // MS-DOS time field as stored, for ZipCrypto's header verify byte
	aesStrength        AESStrength
	aesVendorVersion   uint16
	aesRealMethod      Method
}

// IsDir reports whether the entry names a directory, per the ZIP
// convention of a trailing slash in the logical name.
func (e *Entry) IsDir() bool {
	return len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/'
}

// IsSymlink reports whether the entry's Unix external attributes mark it
// as a symbolic link (upper 16 bits of ExternalAttrs hold st_mode when the
// creator host is Unix).
func (e *Entry) IsSymlink() bool {
	const unixModeSymlink = 0xA000 // S_IFLNK
	mode := e.ExternalAttrs >> 16
	return mode&0xF000 == unixModeSymlink
}

// Encrypted reports whether the entry's payload requires a password.
func (e *Entry) Encrypted() bool {
	return e.Flags.encrypted()
}

// AESProtected reports whether the entry uses WinZip AES (method 99),
// as opposed to legacy ZipCrypto.
func (e *Entry) AESProtected() bool {
	return e.Method == MethodAES
}

// Supported reports whether Open can decode this entry's compression
// method at all. An AES-protected entry is checked by its real (inner)
// method instead of the always-present MethodAES wrapper.
func (e *Entry) Supported() bool {
	m := e.Method
	if e.AESProtected() {
		m = e.aesRealMethod
	}
	_, ok := m.algorithm()
	return ok
}

func msDosToTime(date, t uint16) time.Time {
	year := int(date>>9) + 1980
	month := int(date>>5) & 0xF
	day := int(date) & 0x1F
	hour := int(t>>11) & 0x1F
	min := int(t>>5) & 0x3F
	sec := (int(t) & 0x1F) * 2
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
}

func timeToMSDOS(t time.Time) (date, tm uint16) {
	t = t.UTC()
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	date = uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	tm = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return
}
