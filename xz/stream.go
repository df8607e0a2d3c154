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
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/Ismail-elkorchi/bytefold/limits"
)

// Config bounds a Reader's resource usage, per the named ceilings in
// bytefold's limits package.
type Config struct {
	Limits limits.Config
	// DictCapOverride forces a dictionary capacity instead of trusting the
	// LZMA2 filter's properties byte; zero means "use the properties byte".
	DictCapOverride int64
}

// Reader decodes a concatenated sequence of xz streams (optionally
// separated by NUL stream padding) from an underlying io.Reader, reading
// forward only: callers needing preflight validation before committing to
// a decompress should use Preflight with a RandomAccess source instead,
// then feed the validated byte range to NewReader.
type Reader struct {
	r   io.Reader
	cfg Config

	curStream *streamState
	totalOut  uint64
}

type streamState struct {
	header  StreamHeader
	index   []IndexRecord
	blockNo int
	cur     *blockReader
}

// NewReader validates the first stream header and returns a Reader ready
// to decode. Subsequent concatenated streams are discovered transparently
// as Read reaches each stream's end.
func NewReader(r io.Reader, cfg Config) (*Reader, error) {
	cfg.Limits = cfg.Limits.ApplyDefaults(limits.Default)
	rd := &Reader{r: r, cfg: cfg}
	if err := rd.openStream(); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *Reader) openStream() error {
	for {
		var magic [4]byte
		if _, err := io.ReadFull(rd.r, magic[:]); err != nil {
			if err == io.EOF {
				rd.curStream = nil
				return io.EOF
			}
			return err
		}
		if bytes.Equal(magic[:], []byte{0, 0, 0, 0}) {
			continue // stream padding between concatenated streams
		}
		rest := make([]byte, HeaderLen-4)
		if _, err := io.ReadFull(rd.r, rest); err != nil {
			return io.ErrUnexpectedEOF
		}
		full := append(append([]byte{}, magic[:]...), rest...)
		var h StreamHeader
		if err := h.UnmarshalBinary(full); err != nil {
			return err
		}
		rd.curStream = &streamState{header: h}
		return nil
	}
}

// Read decodes across block and stream boundaries until p is filled or the
// underlying reader is exhausted.
func (rd *Reader) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if rd.curStream == nil {
			return total, io.EOF
		}
		if rd.curStream.cur == nil {
			if err := rd.nextBlockOrTail(); err != nil {
				if err == io.EOF {
					if serr := rd.openStream(); serr != nil {
						return total, serr
					}
					continue
				}
				return total, err
			}
		}
		n, err := rd.curStream.cur.Read(p[total:])
		total += n
		rd.totalOut += uint64(n)
		if limit := rd.cfg.Limits.MaxTotalUncompressed.Uint64(); limit > 0 && rd.totalOut > limit {
			return total, limits.LimitError(errs.CodeXZBufferLimit, "TotalUncompressed", rd.totalOut, limit)
		}
		if err != nil {
			if err == io.EOF {
				s := rd.curStream
				s.index = append(s.index, IndexRecord{
					UnpaddedSize:     s.cur.unpaddedSize(),
					UncompressedSize: s.cur.uncompressedSize(),
				})
				s.cur = nil
				continue
			}
			return total, err
		}
	}
	return total, nil
}

// nextBlockOrTail reads either the next block header or, upon the index
// indicator byte, the index and footer, validating the index against the
// blocks actually decoded.
func (rd *Reader) nextBlockOrTail() error {
	var sizeByte [1]byte
	if _, err := io.ReadFull(rd.r, sizeByte[:]); err != nil {
		return io.ErrUnexpectedEOF
	}
	if sizeByte[0] == 0 {
		return rd.readTail()
	}
	wantLen := (int(sizeByte[0]) + 1) * 4
	rest := make([]byte, wantLen-1)
	if _, err := io.ReadFull(rd.r, rest); err != nil {
		return io.ErrUnexpectedEOF
	}
	full := append(append([]byte{}, sizeByte[:]...), rest...)
	bh, err := DecodeBlockHeader(full)
	if err != nil {
		return err
	}
	br, err := newBlockReader(rd.r, bh, wantLen, rd.curStream.header.Check, rd.cfg.DictCapOverride)
	if err != nil {
		return err
	}
	rd.curStream.cur = br
	rd.curStream.blockNo++
	return nil
}

func (rd *Reader) readTail() error {
	// index indicator byte already consumed by the caller. The index body
	// length is self-describing only via its record count, so it is read
	// incrementally (record count, then that many unpaddedSize/
	// uncompressedSize VLI pairs), bounded by MaxXZIndexRecords, rather
	// than buffered speculatively. Every byte of the index, starting with
	// the indicator byte, feeds the running CRC32 so the trailing index
	// checksum can be verified without re-buffering the whole index.
	maxRecords := rd.cfg.Limits.MaxXZIndexRecords
	crc := crc32.NewIEEE()
	crc.Write([]byte{0x00})
	tr := io.TeeReader(rd.r, crc)

	count, consumed, err := readOneVLIFromReader(tr)
	if err != nil {
		return err
	}
	if maxRecords > 0 && count > maxRecords {
		return limits.LimitError(errs.CodeXZBufferLimit, "IndexRecords", count, maxRecords)
	}
	records := make([]IndexRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		unpadded, n1, err := readOneVLIFromReader(tr)
		if err != nil {
			return err
		}
		uncompressed, n2, err := readOneVLIFromReader(tr)
		if err != nil {
			return err
		}
		consumed += n1 + n2
		records = append(records, IndexRecord{UnpaddedSize: int64(unpadded), UncompressedSize: int64(uncompressed)})
	}
	pad := int(padLen(int64(consumed + 1))) // +1 accounts for the already-consumed indicator byte
	padBytes := make([]byte, pad)
	if _, err := io.ReadFull(tr, padBytes); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	for _, b := range padBytes {
		if b != 0 {
			return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: non-zero index padding")
		}
	}
	rest := make([]byte, 4+FooterLen)
	if _, err := io.ReadFull(rd.r, rest); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if binary.LittleEndian.Uint32(rest[:4]) != crc.Sum32() {
		return errs.New(errs.KindIntegrity, errs.CodeXZCheckMismatch, "xz: index CRC mismatch")
	}
	var footer StreamFooter
	if err := footer.UnmarshalBinary(rest[4:]); err != nil {
		return err
	}
	wantIndexSize := int64(1+consumed+pad) + 4
	if footer.IndexSize != wantIndexSize {
		return errs.New(errs.KindStructural, errs.CodeXZIndexMismatch, "xz: index size does not match footer")
	}
	if len(records) != len(rd.curStream.index) {
		return errs.New(errs.KindStructural, errs.CodeXZIndexMismatch, "xz: index record count mismatch").
			WithContext("recordedBlocks", itoa(len(rd.curStream.index)), "indexBlocks", itoa(len(records)))
	}
	for i, rec := range records {
		got := rd.curStream.index[i]
		if rec != got {
			return errs.New(errs.KindStructural, errs.CodeXZIndexMismatch, "xz: index record does not match decoded block")
		}
	}
	if footer.Check != rd.curStream.header.Check {
		return errs.New(errs.KindStructural, errs.CodeXZBadData, "xz: footer check type does not match header")
	}
	return io.EOF
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
