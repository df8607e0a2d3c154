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

// Package xz implements a hand-written decoder for the .xz container
// format: stream header/footer, block headers, the filter chain (Delta,
// the BCJ branch-call-jump converters, and the mandatory trailing LZMA2
// filter), and the VLI-encoded index. Writing is out of scope; see
// bytefold's codec package for the compressing algorithms.
package xz

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"hash/crc64"

	"github.com/Ismail-elkorchi/bytefold/errs"
)

// StreamMagic is the six-byte magic that opens every xz stream.
var StreamMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// FooterMagic is the two-byte magic that closes every xz stream.
var FooterMagic = []byte{'Y', 'Z'}

const (
	HeaderLen = 12
	FooterLen = 12
)

// CheckType identifies the stream's integrity check.
type CheckType byte

const (
	CheckNone   CheckType = 0x00
	CheckCRC32  CheckType = 0x01
	CheckCRC64  CheckType = 0x04
	CheckSHA256 CheckType = 0x0a
)

func (c CheckType) valid() bool {
	switch c {
	case CheckNone, CheckCRC32, CheckCRC64, CheckSHA256:
		return true
	default:
		return false
	}
}

func (c CheckType) size() int {
	switch c {
	case CheckNone:
		return 0
	case CheckCRC32:
		return 4
	case CheckCRC64:
		return 8
	case CheckSHA256:
		return 32
	default:
		return 0
	}
}

func newHasher(c CheckType) hash.Hash {
	switch c {
	case CheckCRC32:
		return crc32.NewIEEE()
	case CheckCRC64:
		return crc64.New(crc64.MakeTable(crc64.ECMA))
	case CheckSHA256:
		return sha256.New()
	default:
		return nil
	}
}

// StreamHeader is the decoded form of the 12-byte xz stream header.
type StreamHeader struct {
	Check CheckType
}

// UnmarshalBinary decodes a 12-byte stream header, validating its CRC32
// and flag byte the way the reference decoder's header.UnmarshalBinary
// does.
func (h *StreamHeader) UnmarshalBinary(data []byte) error {
	if len(data) != HeaderLen {
		return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: wrong header length")
	}
	if !bytes.Equal(StreamMagic, data[:6]) {
		return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: bad stream magic")
	}
	crc := crc32.NewIEEE()
	crc.Write(data[6:8])
	if binary.LittleEndian.Uint32(data[8:12]) != crc.Sum32() {
		return errs.New(errs.KindIntegrity, errs.CodeXZCheckMismatch, "xz: header CRC mismatch")
	}
	if data[6] != 0 {
		return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: reserved flags byte set")
	}
	check := CheckType(data[7])
	if !check.valid() {
		return errs.New(errs.KindUnsupported, errs.CodeXZUnsupportedCheck, "xz: invalid check type")
	}
	h.Check = check
	return nil
}

// StreamFooter is the decoded form of the 12-byte xz stream footer.
type StreamFooter struct {
	IndexSize int64
	Check     CheckType
}

// UnmarshalBinary decodes a 12-byte stream footer.
func (f *StreamFooter) UnmarshalBinary(data []byte) error {
	if len(data) != FooterLen {
		return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: wrong footer length")
	}
	if !bytes.Equal(data[10:12], FooterMagic) {
		return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: bad footer magic")
	}
	crc := crc32.NewIEEE()
	crc.Write(data[4:10])
	if binary.LittleEndian.Uint32(data[0:4]) != crc.Sum32() {
		return errs.New(errs.KindIntegrity, errs.CodeXZCheckMismatch, "xz: footer CRC mismatch")
	}
	f.IndexSize = (int64(binary.LittleEndian.Uint32(data[4:8])) + 1) * 4
	if data[8] != 0 {
		return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: reserved footer flags set")
	}
	check := CheckType(data[9])
	if !check.valid() {
		return errs.New(errs.KindUnsupported, errs.CodeXZUnsupportedCheck, "xz: invalid footer check type")
	}
	f.Check = check
	return nil
}

// FilterID identifies one entry of a block's filter chain.
type FilterID uint64

const (
	FilterDelta    FilterID = 0x03
	FilterBCJX86   FilterID = 0x04
	FilterBCJPPC   FilterID = 0x05
	FilterBCJIA64  FilterID = 0x06
	FilterBCJARM   FilterID = 0x07
	FilterBCJARMT  FilterID = 0x08
	FilterBCJSPARC FilterID = 0x09
	FilterBCJARM64 FilterID = 0x0a
	FilterLZMA2    FilterID = 0x21

	minReservedFilterID = 1 << 62
)

// FilterEntry is one filter in a block header's filter chain, in on-wire
// order (the last entry is always LZMA2).
type FilterEntry struct {
	ID         FilterID
	Properties []byte
}

// BlockHeader is the decoded form of one xz block header.
type BlockHeader struct {
	CompressedSize   int64 // -1 if absent
	UncompressedSize int64 // -1 if absent
	Filters          []FilterEntry
}

const (
	blockFlagFilterCountMask       = 0x03
	blockFlagCompressedPresent     = 0x40
	blockFlagUncompressedPresent   = 0x80
	blockFlagReservedMask          = 0x3c
	blockHeaderCRCLen              = 4
	blockHeaderMinEncodedWordCount = 2
)

// DecodeBlockHeader parses a complete block header (including its trailing
// CRC32), as already buffered by the caller per its declared length.
func DecodeBlockHeader(data []byte) (*BlockHeader, error) {
	if len(data) < 8 || len(data)%4 != 0 {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: malformed block header length")
	}
	sizeByte := data[0]
	if sizeByte == 0 {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: index indicator where block header expected")
	}
	wantLen := (int(sizeByte) + 1) * 4
	if wantLen != len(data) {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: block header length mismatch")
	}
	crc := crc32.NewIEEE()
	crc.Write(data[:wantLen-4])
	if crc.Sum32() != binary.LittleEndian.Uint32(data[wantLen-4:]) {
		return nil, errs.New(errs.KindIntegrity, errs.CodeXZCheckMismatch, "xz: block header CRC mismatch")
	}

	flags := data[1]
	if flags&blockFlagReservedMask != 0 {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: reserved block header flags set")
	}

	dec := NewVLIReader(data[2 : wantLen-4])

	h := &BlockHeader{CompressedSize: -1, UncompressedSize: -1}
	if flags&blockFlagCompressedPresent != 0 {
		v, err := dec.ReadOne()
		if err != nil {
			return nil, err
		}
		h.CompressedSize = int64(v)
	}
	if flags&blockFlagUncompressedPresent != 0 {
		v, err := dec.ReadOne()
		if err != nil {
			return nil, err
		}
		h.UncompressedSize = int64(v)
	}

	count := int(flags&blockFlagFilterCountMask) + 1
	filters, err := readFilterChain(dec, count)
	if err != nil {
		return nil, err
	}
	h.Filters = filters

	if err := dec.RequireZeroPadding(); err != nil {
		return nil, err
	}
	return h, nil
}

func readFilterChain(dec *VLIReader, count int) ([]FilterEntry, error) {
	if count < 1 || count > 4 {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: invalid filter count")
	}
	out := make([]FilterEntry, 0, count)
	for i := 0; i < count; i++ {
		id, err := dec.ReadOne()
		if err != nil {
			return nil, err
		}
		size, err := dec.ReadOne()
		if err != nil {
			return nil, err
		}
		props, err := dec.ReadBytes(int(size))
		if err != nil {
			return nil, err
		}
		fid := FilterID(id)
		if fid >= minReservedFilterID {
			return nil, errs.New(errs.KindUnsupported, errs.CodeXZUnsupportedFilter, "xz: reserved filter id")
		}
		if !knownFilterID(fid) {
			return nil, errs.New(errs.KindUnsupported, errs.CodeXZUnsupportedFilter, "xz: unsupported filter id")
		}
		out = append(out, FilterEntry{ID: fid, Properties: props})
	}
	last := out[len(out)-1]
	if last.ID != FilterLZMA2 {
		return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: last filter must be LZMA2")
	}
	for _, f := range out[:len(out)-1] {
		if f.ID == FilterLZMA2 {
			return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: LZMA2 filter must be last")
		}
	}
	return out, nil
}

func knownFilterID(id FilterID) bool {
	switch id {
	case FilterDelta, FilterBCJX86, FilterBCJPPC, FilterBCJIA64,
		FilterBCJARM, FilterBCJARMT, FilterBCJSPARC, FilterBCJARM64, FilterLZMA2:
		return true
	default:
		return false
	}
}

// IndexRecord is one entry of the xz index: the unpadded size and the
// uncompressed size of one block, used to validate the block-by-block
// decode without re-reading the blocks.
type IndexRecord struct {
	UnpaddedSize     int64
	UncompressedSize int64
}

// DecodeIndex parses the index body (everything between the index
// indicator byte and the trailing CRC32), already buffered by the caller.
func DecodeIndex(body []byte) ([]IndexRecord, error) {
	dec := NewVLIReader(body)
	count, err := dec.ReadOne()
	if err != nil {
		return nil, err
	}
	records := make([]IndexRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		unpadded, err := dec.ReadOne()
		if err != nil {
			return nil, err
		}
		uncompressed, err := dec.ReadOne()
		if err != nil {
			return nil, err
		}
		records = append(records, IndexRecord{
			UnpaddedSize:     int64(unpadded),
			UncompressedSize: int64(uncompressed),
		})
	}
	if err := dec.RequireZeroPadding(); err != nil {
		return nil, err
	}
	return records, nil
}

// padLen returns how many zero bytes pad n up to the next multiple of four.
func padLen(n int64) int64 {
	if r := n % 4; r != 0 {
		return 4 - r
	}
	return 0
}
