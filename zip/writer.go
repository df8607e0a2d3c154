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
	"io"
	"time"

	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/Ismail-elkorchi/bytefold/ioutil"
)

// Zip64Policy controls when an entry is promoted to ZIP64 records, per the
// three promotion policies the writer contract names.
type Zip64Policy int

const (
	// Zip64Auto promotes an entry only when its compressed or uncompressed
	// size, or its local-header offset, would overflow a 32-bit field.
	Zip64Auto Zip64Policy = iota
	// Zip64Force always writes ZIP64 records, even for small entries.
	Zip64Force
	// Zip64Off never promotes; an overflowing entry is a hard error instead.
	Zip64Off
)

const sizeOverflowThreshold = 0xFFFFFFFE

// WriterConfig governs a Writer's ZIP64 and encryption-free defaults.
type WriterConfig struct {
	Zip64 Zip64Policy
}

// AddOptions describes one staged entry: its logical name, compression
// method, modification time, and an optional password for WinZip AES
// encryption (ZipCrypto is read-only here; the writer path only ever
// emits the stronger scheme when a password is supplied).
type AddOptions struct {
	Method      Method
	ModTime     time.Time
	Password    []byte
	AESStrength AESStrength // defaults to AES256 when Password is set and this is zero
	Comment     string
	ExternalAttrs uint32
}

// Writer builds a ZIP archive onto a Sink. In seekable mode (sink implements
// ioutil.SeekableSink) local headers are reserved with zeros and patched
// once an entry's CRC/sizes are known, clearing the data-descriptor flag;
// otherwise a trailing data descriptor follows every entry's payload.
type Writer struct {
	sink   ioutil.Sink
	seek   ioutil.SeekableSink
	cfg    WriterConfig
	dirs   []*dirRecord
	closed bool
}

// dirRecord is the information a finalized central directory record needs,
// captured at add-time since the payload itself is never retained.
type dirRecord struct {
	name              string
	comment           string
	method            Method
	flags             GeneralFlags
	crc32             uint32
	compressedSize    uint64
	uncompressedSize  uint64
	localHeaderOffset uint64
	modTime           time.Time
	isZip64           bool
	externalAttrs     uint32
	aesStrength       AESStrength
	realMethod        Method // the method the AES container wraps, when method == MethodAES
}

// NewWriter returns a Writer over sink. When sink also implements
// ioutil.SeekableSink, the writer automatically uses seekable mode.
func NewWriter(sink ioutil.Sink, cfg WriterConfig) *Writer {
	w := &Writer{sink: sink, cfg: cfg}
	if seek, ok := sink.(ioutil.SeekableSink); ok {
		w.seek = seek
	}
	return w
}

// Add stages one entry, reading source to completion, compressing with
// opts.Method, optionally encrypting, and writing the local header plus
// payload (and, in non-seekable mode, a trailing data descriptor).
func (w *Writer) Add(name string, source io.Reader, opts AddOptions) error {
	if w.closed {
		return errs.New(errs.KindStructural, errs.CodeZipWriterClosed, "zip: writer already closed")
	}
	if err := validateEntryName(name); err != nil {
		return err
	}

	localOffset := w.sink.Position()
	algo, ok := opts.Method.algorithm()
	if !ok {
		return errs.New(errs.KindUnsupported, errs.CodeZipUnsupportedAlgo, "zip: unsupported compression method for writing")
	}

	flags := GeneralFlags(0)
	encrypted := len(opts.Password) > 0
	strength := opts.AESStrength
	if encrypted && strength == 0 {
		strength = AES256
	}
	if encrypted {
		flags |= flagEncrypted
	}
	seekable := w.seek != nil
	if !seekable {
		flags |= flagDataDescriptor
	}

	nameBytes := []byte(name)
	flags |= flagUTF8

	headerOffset := localOffset
	localHeader := buildLocalHeader(nameBytes, flags, opts.Method, opts.ModTime, encrypted)
	if _, err := w.sink.Write(localHeader); err != nil {
		return err
	}
	if _, err := w.sink.Write(nameBytes); err != nil {
		return err
	}

	crcAccum := crc32.NewIEEE()
	var uncompressedSize uint64

	bodyWriter := &sinkWriteCloser{sink: w.sink}
	var payload io.WriteCloser = bodyWriter
	var authTrailer func() ([]byte, error)

	if encrypted {
		aw, trailer, err := newAESWriter(bodyWriter, opts.Password, strength)
		if err != nil {
			return err
		}
		payload = aw
		authTrailer = trailer
	}

	compressor, err := algo.Writer(payload)
	if err != nil {
		return err
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := source.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			crcAccum.Write(chunk)
			uncompressedSize += uint64(n)
			if _, werr := compressor.Write(chunk); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := compressor.Close(); err != nil {
		return err
	}
	if encrypted {
		if err := payload.Close(); err != nil {
			return err
		}
		tag, err := authTrailer()
		if err != nil {
			return err
		}
		if _, err := w.sink.Write(tag); err != nil {
			return err
		}
	}

	// For AES-encrypted entries, the stored compressed size spans the full
	// salt+pwv+ciphertext+auth-tag region (entry.go's reader computes the
	// cipher section and tag the same way, in reverse).
	compressedSize := bodyWriter.written
	if encrypted {
		compressedSize = bodyWriter.written + aesAuthCodeLen
	}
	crcVal := crc32ValueOf(crcAccum)

	method := opts.Method
	if encrypted {
		method = MethodAES
	}

	isZip64 := localOffset > sizeOverflowThreshold || compressedSize > sizeOverflowThreshold || uncompressedSize > sizeOverflowThreshold
	switch w.cfg.Zip64 {
	case Zip64Force:
		isZip64 = true
	case Zip64Off:
		if isZip64 {
			return errs.New(errs.KindLimit, errs.CodeZip64Required, "zip: entry exceeds 32-bit limits but zip64 promotion is disabled").
				WithContext("name", name)
		}
	}

	rec := &dirRecord{
		name:              name,
		comment:           opts.Comment,
		method:            method,
		flags:             flags,
		crc32:             crcVal,
		compressedSize:    compressedSize,
		uncompressedSize:  uncompressedSize,
		localHeaderOffset: headerOffset,
		modTime:           opts.ModTime,
		isZip64:           isZip64,
		externalAttrs:     opts.ExternalAttrs,
		aesStrength:       strength,
		realMethod:        opts.Method,
	}

	if seekable {
		if err := w.patchLocalHeader(rec); err != nil {
			return err
		}
	} else {
		if err := w.writeDataDescriptor(rec); err != nil {
			return err
		}
	}

	w.dirs = append(w.dirs, rec)
	return nil
}

// patchLocalHeader overwrites the CRC32/compressed/uncompressed size fields
// of the local header already written at rec.localHeaderOffset, and clears
// the data-descriptor bit, since seekable mode never emits one.
func (w *Writer) patchLocalHeader(rec *dirRecord) error {
	var patch [12]byte
	binary.LittleEndian.PutUint32(patch[0:4], rec.crc32)
	if rec.isZip64 {
		binary.LittleEndian.PutUint32(patch[4:8], sentinel32)
		binary.LittleEndian.PutUint32(patch[8:12], sentinel32)
	} else {
		binary.LittleEndian.PutUint32(patch[4:8], uint32(rec.compressedSize))
		binary.LittleEndian.PutUint32(patch[8:12], uint32(rec.uncompressedSize))
	}
	if _, err := w.seek.WriteAt(rec.localHeaderOffset+14, patch[:]); err != nil {
		return err
	}
	var flagByte [2]byte
	binary.LittleEndian.PutUint16(flagByte[:], uint16(rec.flags))
	if _, err := w.seek.WriteAt(rec.localHeaderOffset+6, flagByte[:]); err != nil {
		return err
	}
	return nil
}

// writeDataDescriptor appends the informal post-payload descriptor used
// whenever the sink cannot support a positioned patch.
func (w *Writer) writeDataDescriptor(rec *dirRecord) error {
	var buf [dataDescriptorLen + 4]byte
	binary.LittleEndian.PutUint32(buf[0:4], sigDataDescriptor)
	binary.LittleEndian.PutUint32(buf[4:8], rec.crc32)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(rec.compressedSize))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(rec.uncompressedSize))
	_, err := w.sink.Write(buf[:])
	return err
}

// Close writes the central directory, optional ZIP64 locator/record, and
// the EOCD, then closes the underlying sink.
func (w *Writer) Close(comment string) error {
	if w.closed {
		return errs.New(errs.KindStructural, errs.CodeZipWriterClosed, "zip: writer already closed")
	}
	w.closed = true

	cdStart := w.sink.Position()
	anyZip64 := false
	for _, rec := range w.dirs {
		if err := w.writeCentralRecord(rec); err != nil {
			return err
		}
		if rec.isZip64 {
			anyZip64 = true
		}
	}
	cdEnd := w.sink.Position()
	cdSize := cdEnd - cdStart

	entryCount := uint64(len(w.dirs))
	needZip64 := anyZip64 || w.cfg.Zip64 == Zip64Force ||
		entryCount >= 0xFFFF || cdSize >= sentinel32 || cdStart >= sentinel32

	if needZip64 {
		if err := w.writeZip64EOCD(cdStart, cdEnd, entryCount); err != nil {
			return err
		}
	}
	if err := w.writeEOCD(cdStart, cdSize, entryCount, comment, needZip64); err != nil {
		return err
	}
	return w.sink.Close()
}

func (w *Writer) writeCentralRecord(rec *dirRecord) error {
	var hdr [centralDirHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], sigCentralDir)
	binary.LittleEndian.PutUint16(hdr[4:6], 0x0314) // version made by: unix host, 20
	binary.LittleEndian.PutUint16(hdr[6:8], 20)     // version needed
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(rec.flags))
	binary.LittleEndian.PutUint16(hdr[10:12], uint16(rec.method))
	date, t := timeToMSDOS(rec.modTime)
	binary.LittleEndian.PutUint16(hdr[12:14], t)
	binary.LittleEndian.PutUint16(hdr[14:16], date)
	binary.LittleEndian.PutUint32(hdr[16:20], rec.crc32)

	nameBytes := []byte(rec.name)
	commentBytes := []byte(rec.comment)
	extra := append(buildZip64Extra(rec), buildAESExtra(rec)...)

	if rec.isZip64 {
		binary.LittleEndian.PutUint32(hdr[20:24], sentinel32)
		binary.LittleEndian.PutUint32(hdr[24:28], sentinel32)
	} else {
		binary.LittleEndian.PutUint32(hdr[20:24], uint32(rec.compressedSize))
		binary.LittleEndian.PutUint32(hdr[24:28], uint32(rec.uncompressedSize))
	}
	binary.LittleEndian.PutUint16(hdr[28:30], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(hdr[30:32], uint16(len(extra)))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(len(commentBytes)))
	binary.LittleEndian.PutUint16(hdr[34:36], 0) // disk number start
	binary.LittleEndian.PutUint16(hdr[36:38], 0) // internal attrs
	binary.LittleEndian.PutUint32(hdr[38:42], rec.externalAttrs)
	if rec.isZip64 && rec.localHeaderOffset >= sentinel32 {
		binary.LittleEndian.PutUint32(hdr[42:46], sentinel32)
	} else {
		binary.LittleEndian.PutUint32(hdr[42:46], uint32(rec.localHeaderOffset))
	}

	for _, chunk := range [][]byte{hdr[:], nameBytes, extra, commentBytes} {
		if _, err := w.sink.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// buildZip64Extra emits the 0x0001 extra only with the fields that were
// actually sentineled in the fixed-width record, per APPNOTE's documented
// order: uncompressed size, compressed size, local header offset.
func buildZip64Extra(rec *dirRecord) []byte {
	if !rec.isZip64 {
		return nil
	}
	var body []byte
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], rec.uncompressedSize)
	body = append(body, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], rec.compressedSize)
	body = append(body, u64[:]...)
	if rec.localHeaderOffset >= sentinel32 {
		binary.LittleEndian.PutUint64(u64[:], rec.localHeaderOffset)
		body = append(body, u64[:]...)
	}

	extra := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint16(extra[0:2], extraZip64)
	binary.LittleEndian.PutUint16(extra[2:4], uint16(len(body)))
	copy(extra[4:], body)
	return extra
}

// buildAESExtra emits the 0x9901 WinZip AES extra recording vendor version
// "AE-2" (required for non-Store/Deflate methods; bytefold always emits
// AE-2 since it never tracks a pre-encryption CRC separately), the "AE"
// vendor id, the key strength, and the compression method the AES
// container wraps.
func buildAESExtra(rec *dirRecord) []byte {
	if rec.method != MethodAES {
		return nil
	}
	extra := make([]byte, 4+7)
	binary.LittleEndian.PutUint16(extra[0:2], extraAESHeader)
	binary.LittleEndian.PutUint16(extra[2:4], 7)
	binary.LittleEndian.PutUint16(extra[4:6], 2) // AE-2
	extra[6], extra[7] = 'A', 'E'
	extra[8] = byte(rec.aesStrength)
	binary.LittleEndian.PutUint16(extra[9:11], uint16(rec.realMethod))
	return extra
}

func (w *Writer) writeZip64EOCD(cdStart, cdEnd uint64, entryCount uint64) error {
	recordOffset := w.sink.Position()
	var rec [eocd64Len]byte
	binary.LittleEndian.PutUint32(rec[0:4], sigEOCD64)
	binary.LittleEndian.PutUint64(rec[4:12], eocd64Len-12)
	binary.LittleEndian.PutUint16(rec[12:14], 0x032D) // version made by
	binary.LittleEndian.PutUint16(rec[14:16], 45)     // version needed for zip64
	binary.LittleEndian.PutUint32(rec[16:20], 0)      // disk number
	binary.LittleEndian.PutUint32(rec[20:24], 0)      // disk with central dir start
	binary.LittleEndian.PutUint64(rec[24:32], entryCount)
	binary.LittleEndian.PutUint64(rec[32:40], entryCount)
	binary.LittleEndian.PutUint64(rec[40:48], cdEnd-cdStart)
	binary.LittleEndian.PutUint64(rec[48:56], cdStart)
	if _, err := w.sink.Write(rec[:]); err != nil {
		return err
	}

	var loc [eocd64LocatorLen]byte
	binary.LittleEndian.PutUint32(loc[0:4], sigEOCD64Locator)
	binary.LittleEndian.PutUint32(loc[4:8], 0)
	binary.LittleEndian.PutUint64(loc[8:16], recordOffset)
	binary.LittleEndian.PutUint32(loc[16:20], 1)
	_, err := w.sink.Write(loc[:])
	return err
}

func (w *Writer) writeEOCD(cdStart, cdSize uint64, entryCount uint64, comment string, isZip64 bool) error {
	commentBytes := []byte(comment)
	if len(commentBytes) > 0xFFFF {
		return errs.New(errs.KindLimit, errs.CodeCompressionResourceLimit, "zip: archive comment exceeds 65535 bytes")
	}

	entries16 := uint16(entryCount)
	cdSize32 := uint32(cdSize)
	cdStart32 := uint32(cdStart)
	if isZip64 {
		if entryCount >= 0xFFFF {
			entries16 = 0xFFFF
		}
		if cdSize >= sentinel32 {
			cdSize32 = sentinel32
		}
		if cdStart >= sentinel32 {
			cdStart32 = sentinel32
		}
	}

	var eocd [eocdLen]byte
	binary.LittleEndian.PutUint32(eocd[0:4], sigEOCD)
	binary.LittleEndian.PutUint16(eocd[4:6], 0)
	binary.LittleEndian.PutUint16(eocd[6:8], 0)
	binary.LittleEndian.PutUint16(eocd[8:10], entries16)
	binary.LittleEndian.PutUint16(eocd[10:12], entries16)
	binary.LittleEndian.PutUint32(eocd[12:16], cdSize32)
	binary.LittleEndian.PutUint32(eocd[16:20], cdStart32)
	binary.LittleEndian.PutUint16(eocd[20:22], uint16(len(commentBytes)))

	if _, err := w.sink.Write(eocd[:]); err != nil {
		return err
	}
	_, err := w.sink.Write(commentBytes)
	return err
}

// buildLocalHeader assembles the fixed 30-byte local file header. Sizes are
// written as zero: seekable mode patches them in later, non-seekable mode
// relies on the trailing data descriptor instead (APPNOTE permits zero
// sizes in the local header whenever bit 0x08 is set).
func buildLocalHeader(name []byte, flags GeneralFlags, method Method, modTime time.Time, encrypted bool) []byte {
	var hdr [localFileHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], sigLocalFile)
	binary.LittleEndian.PutUint16(hdr[4:6], 20)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(flags))
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(method))
	date, t := timeToMSDOS(modTime)
	binary.LittleEndian.PutUint16(hdr[10:12], t)
	binary.LittleEndian.PutUint16(hdr[12:14], date)
	// CRC32 / compressed / uncompressed sizes start at zero; patched or
	// trailed per the seekable/non-seekable paths.
	binary.LittleEndian.PutUint16(hdr[26:28], uint16(len(name)))
	binary.LittleEndian.PutUint16(hdr[28:30], 0) // extra length; no local extras emitted
	return hdr[:]
}

func validateEntryName(name string) error {
	if name == "" {
		return errs.New(errs.KindSecurity, errs.CodeZipNameInvalid, "zip: entry name is empty")
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return errs.New(errs.KindSecurity, errs.CodeZipNameInvalid, "zip: entry name contains NUL byte")
		}
	}
	return nil
}

// sinkWriteCloser adapts ioutil.Sink's append-only Write to io.WriteCloser,
// tracking bytes written so the caller can recover compressed-size without
// asking the sink for its position twice.
type sinkWriteCloser struct {
	sink    ioutil.Sink
	written uint64
}

func (s *sinkWriteCloser) Write(p []byte) (int, error) {
	n, err := s.sink.Write(p)
	s.written += uint64(n)
	return n, err
}

func (s *sinkWriteCloser) Close() error { return nil }

func crc32ValueOf(h interface{ Sum32() uint32 }) uint32 {
	return h.Sum32()
}
