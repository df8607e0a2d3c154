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

package xz

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/Ismail-elkorchi/bytefold/ioutil"
	"github.com/Ismail-elkorchi/bytefold/limits"
	"github.com/Ismail-elkorchi/bytefold/xz/lzma2"
)

// PreflightReport summarizes what walking the tail of a seekable xz source
// found, without decompressing a single byte.
type PreflightReport struct {
	Streams              int
	Blocks               int
	RequiredIndexRecords uint64
	RequiredIndexBytes   uint64
	MaxDictionaryBytes   uint64
	HadPadding           bool
}

// readExact fills a buffer of the given length from a RandomAccess source
// starting at offset, looping because ReadAt is permitted to return short,
// non-EOF reads.
func readExact(ctx context.Context, ra ioutil.RandomAccess, offset uint64, length int) ([]byte, error) {
	out := make([]byte, 0, length)
	for len(out) < length {
		chunk, err := ra.ReadAt(ctx, offset+uint64(len(out)), length-len(out))
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

// Preflight walks a seekable source from the tail, stream by stream: each
// stream's footer names its index size, the index names each block's
// unpadded/uncompressed sizes, and each block header (read without ever
// entering its compressed payload) names its LZMA2 dictionary property. It
// accumulates the totals an agent needs to bound cost before committing to
// a decompress, and aborts with a typed limit error the moment a configured
// ceiling is exceeded. It never invokes the LZMA2 decoder.
func Preflight(ctx context.Context, ra ioutil.RandomAccess, cfg limits.Config) (*PreflightReport, error) {
	cfg = cfg.ApplyDefaults(limits.Default)
	size, err := ra.Size(ctx)
	if err != nil {
		return nil, err
	}
	report := &PreflightReport{}

	end := size
	for end > 0 {
		footerEnd, hadPadding, err := skipTrailingPadding(ctx, ra, end)
		if err != nil {
			return nil, err
		}
		if hadPadding {
			report.HadPadding = true
		}
		if footerEnd == 0 {
			break
		}

		footerBytes, err := readExact(ctx, ra, footerEnd-FooterLen, FooterLen)
		if err != nil {
			return nil, err
		}
		var footer StreamFooter
		if err := footer.UnmarshalBinary(footerBytes); err != nil {
			return nil, err
		}

		indexStart := footerEnd - uint64(FooterLen) - uint64(footer.IndexSize)
		indexBytes, err := readExact(ctx, ra, indexStart, int(footer.IndexSize))
		if err != nil {
			return nil, err
		}
		if uint64(len(indexBytes)) > cfg.MaxXZIndexBytes.Uint64() {
			return nil, limits.LimitError(errs.CodeXZBufferLimit, "IndexBytes", uint64(len(indexBytes)), cfg.MaxXZIndexBytes.Uint64())
		}
		if len(indexBytes) == 0 || indexBytes[0] != 0x00 {
			return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: index indicator byte missing")
		}
		if len(indexBytes) < 4 {
			return nil, errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: index too short for trailing CRC32")
		}
		body, crcTrailer := indexBytes[:len(indexBytes)-4], indexBytes[len(indexBytes)-4:]
		crc := crc32.NewIEEE()
		crc.Write(body)
		if binary.LittleEndian.Uint32(crcTrailer) != crc.Sum32() {
			return nil, errs.New(errs.KindIntegrity, errs.CodeXZCheckMismatch, "xz: index CRC mismatch")
		}
		records, err := DecodeIndex(body[1:])
		if err != nil {
			return nil, err
		}
		if uint64(len(records)) > cfg.MaxXZIndexRecords {
			return nil, limits.LimitError(errs.CodeXZBufferLimit, "IndexRecords", uint64(len(records)), cfg.MaxXZIndexRecords)
		}

		report.Streams++
		report.RequiredIndexRecords += uint64(len(records))
		report.RequiredIndexBytes += uint64(len(indexBytes))

		streamStart := indexStart - uint64(HeaderLen)
		headerBytes, err := readExact(ctx, ra, streamStart, HeaderLen)
		if err != nil {
			return nil, err
		}
		var header StreamHeader
		if err := header.UnmarshalBinary(headerBytes); err != nil {
			return nil, err
		}

		blockPos := streamStart + uint64(HeaderLen)
		for _, rec := range records {
			if uint64(report.Blocks+1) > cfg.MaxXZPreflightBlocks {
				return nil, limits.LimitError(errs.CodeXZBufferLimit, "PreflightBlocks", uint64(report.Blocks+1), cfg.MaxXZPreflightBlocks)
			}
			sizeByte, err := readExact(ctx, ra, blockPos, 1)
			if err != nil {
				return nil, err
			}
			if sizeByte[0] == 0 {
				return nil, errs.New(errs.KindStructural, errs.CodeXZIndexMismatch, "xz: index names more blocks than the stream contains")
			}
			hdrLen := (int(sizeByte[0]) + 1) * 4
			hdrBytes, err := readExact(ctx, ra, blockPos, hdrLen)
			if err != nil {
				return nil, err
			}
			bh, err := DecodeBlockHeader(hdrBytes)
			if err != nil {
				return nil, err
			}
			for _, f := range bh.Filters {
				if f.ID != FilterLZMA2 || len(f.Properties) != 1 {
					continue
				}
				dc, err := lzma2.DecodeDictCap(f.Properties[0])
				if err != nil {
					return nil, err
				}
				if uint64(dc) > report.MaxDictionaryBytes {
					report.MaxDictionaryBytes = uint64(dc)
				}
				if uint64(dc) > cfg.MaxDictionaryBytes.Uint64() {
					return nil, limits.LimitError(errs.CodeCompressionResourceLimit, "DictionaryBytes", uint64(dc), cfg.MaxDictionaryBytes.Uint64())
				}
			}
			report.Blocks++
			blockPos += uint64(rec.UnpaddedSize) + uint64(padLen(rec.UnpaddedSize))
		}

		if streamStart == 0 {
			break
		}
		end = streamStart
	}

	return report, nil
}

// skipTrailingPadding scans backward in 4-byte steps from end over any NUL
// stream padding, returning the offset immediately after the last non-zero
// byte found (the exclusive end of the preceding stream's footer), or 0 if
// the source is exhausted.
func skipTrailingPadding(ctx context.Context, ra ioutil.RandomAccess, end uint64) (footerEnd uint64, hadPadding bool, err error) {
	pos := end
	for pos > 0 {
		step := uint64(4)
		if pos < step {
			step = pos
		}
		chunk, rerr := readExact(ctx, ra, pos-step, int(step))
		if rerr != nil {
			return 0, hadPadding, rerr
		}
		if allZero(chunk) {
			hadPadding = true
			pos -= step
			continue
		}
		break
	}
	return pos, hadPadding, nil
}

func allZero(b []byte) bool {
	return bytes.Count(b, []byte{0}) == len(b)
}
