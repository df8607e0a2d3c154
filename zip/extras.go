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
	"encoding/binary"
	"hash/crc32"
	"time"
)

// extraField is one unparsed tag/data pair from an entry's extra block.
type extraField struct {
	tag  uint16
	data []byte
}

// parseExtras splits a raw extra block into its tag/length/data records,
// silently stopping at the first truncated record rather than erroring:
// APPNOTE implementations routinely pad or mis-size this block in the
// wild, and bytefold treats unparseable trailing extras as absent fields
// rather than a fatal central-directory error.
func parseExtras(b []byte) []extraField {
	var out []extraField
	for len(b) >= 4 {
		tag := binary.LittleEndian.Uint16(b)
		size := int(binary.LittleEndian.Uint16(b[2:]))
		b = b[4:]
		if size > len(b) {
			break
		}
		out = append(out, extraField{tag: tag, data: b[:size]})
		b = b[size:]
	}
	return out
}

// applyZip64Extra overwrites sentinel 32-bit fields with their 64-bit
// values from the 0x0001 extra, in the fixed order APPNOTE mandates:
// uncompressed size, compressed size, local header offset, disk number —
// each field present only if its 32-bit counterpart was the sentinel.
func applyZip64Extra(e *Entry, data []byte, needUSize, needCSize, needOffset bool) bool {
	if needUSize {
		if len(data) < 8 {
			return false
		}
		e.UncompressedSize = binary.LittleEndian.Uint64(data)
		data = data[8:]
	}
	if needCSize {
		if len(data) < 8 {
			return false
		}
		e.CompressedSize = binary.LittleEndian.Uint64(data)
		data = data[8:]
	}
	if needOffset {
		if len(data) < 8 {
			return false
		}
		e.LocalHeaderOffset = binary.LittleEndian.Uint64(data)
		data = data[8:]
	}
	return true
}

// unicodeExtraOverride decodes an Info-Zip Unicode Path/Comment extra
// (0x7075/0x6375): a version byte, a CRC32 of the *original* (CP437) name
// or comment bytes, then the UTF-8 replacement. The override only applies
// if the stored CRC matches the raw bytes actually present in this
// record, guarding against a stale extra surviving an in-place rename.
func unicodeExtraOverride(data, rawOriginal []byte) (string, bool) {
	if len(data) < 5 || data[0] != 1 {
		return "", false
	}
	storedCRC := binary.LittleEndian.Uint32(data[1:5])
	if crc32.ChecksumIEEE(rawOriginal) != storedCRC {
		return "", false
	}
	return string(data[5:]), true
}

// extendedTimestamp decodes the 0x5455 extra's modification time, the only
// one of its three optional timestamps (mtime/atime/ctime) this package
// surfaces as a first-class field.
func extendedTimestamp(data []byte) (time.Time, bool) {
	if len(data) < 5 || data[0]&1 == 0 {
		return time.Time{}, false
	}
	sec := int64(int32(binary.LittleEndian.Uint32(data[1:5])))
	return time.Unix(sec, 0).UTC(), true
}

// aesExtraFields are the fields bytefold needs out of the 0x9901 WinZip AES
// extra: vendor version (1 "AE-1" or 2 "AE-2"), strength, and the real
// compression method the AES container wraps.
type aesExtraFields struct {
	vendorVersion uint16
	strength      AESStrength
	realMethod    Method
}

func parseAESExtra(data []byte) (aesExtraFields, bool) {
	if len(data) < 7 {
		return aesExtraFields{}, false
	}
	return aesExtraFields{
		vendorVersion: binary.LittleEndian.Uint16(data[0:2]),
		strength:      AESStrength(data[4]),
		realMethod:    Method(binary.LittleEndian.Uint16(data[5:7])),
	}, true
}
