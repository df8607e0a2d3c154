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

package errs

// Compression-layer codes (gzip/bzip2/lz4/brotli/zstd/xz adapters).
const (
	CodeCompressionBadData       Code = "COMPRESSION_BAD_DATA"
	CodeCompressionUnsupported   Code = "COMPRESSION_UNSUPPORTED_ALGORITHM"
	CodeCompressionResourceLimit Code = "COMPRESSION_RESOURCE_LIMIT"
)

// XZ decoder codes, covering the stream/block/LZMA2 failure semantics.
const (
	CodeXZBadData            Code = "COMPRESSION_XZ_BAD_DATA"
	CodeXZTruncated          Code = "COMPRESSION_XZ_TRUNCATED"
	CodeXZUnsupportedCheck   Code = "COMPRESSION_XZ_UNSUPPORTED_CHECK"
	CodeXZUnsupportedFilter  Code = "COMPRESSION_XZ_UNSUPPORTED_FILTER"
	CodeXZBufferLimit        Code = "COMPRESSION_XZ_BUFFER_LIMIT"
	CodeXZIndexMismatch      Code = "COMPRESSION_XZ_INDEX_MISMATCH"
	CodeXZCheckMismatch      Code = "COMPRESSION_XZ_CHECK_MISMATCH"
)

// ZIP reader/writer codes.
const (
	CodeZipBadSignature    Code = "ZIP_BAD_SIGNATURE"
	CodeZipBadCRC          Code = "ZIP_BAD_CRC"
	CodeZipTruncated       Code = "ZIP_TRUNCATED"
	CodeZipEOCDNotFound    Code = "ZIP_EOCD_NOT_FOUND"
	CodeZipEOCDDuplicate   Code = "ZIP_EOCD_DUPLICATE"
	CodeZipMultiDisk       Code = "ZIP_MULTI_DISK_UNSUPPORTED"
	CodeZipUnicodeCollide  Code = "ZIP_UNICODE_COLLISION"
	CodeZipNameCollide     Code = "ZIP_NAME_COLLISION"
	CodeZipEncrypted       Code = "ZIP_ENCRYPTED_NO_PASSWORD"
	CodeZipAuthFailed      Code = "ZIP_AUTH_FAILED"
	CodeZipBadPassword     Code = "ZIP_BAD_PASSWORD"
	CodeZip64Required      Code = "ZIP_ZIP64_REQUIRED"
	CodeZipUnsupportedAlgo Code = "ZIP_UNSUPPORTED_METHOD"
	CodeZipWriterClosed    Code = "ZIP_WRITER_CLOSED"
	CodeZipNameInvalid     Code = "ZIP_NAME_INVALID"
)

// TAR reader/writer codes.
const (
	CodeTarBadHeader      Code = "TAR_BAD_HEADER"
	CodeTarChecksum       Code = "TAR_BAD_CHECKSUM"
	CodeTarTruncated      Code = "TAR_TRUNCATED"
	CodeTarPathTraversal  Code = "TAR_PATH_TRAVERSAL"
	CodeTarPaxOverflow    Code = "TAR_PAX_SIZE_OVERFLOW"
	CodeTarUnsupported    Code = "TAR_UNSUPPORTED_TYPEFLAG"
)

// Audit/normalize codes.
const (
	CodePathTraversal     Code = "PATH_TRAVERSAL"
	CodeNulInName         Code = "NAME_CONTAINS_NUL"
	CodeUnsupportedEntry  Code = "UNSUPPORTED_ENTRY"
	CodeEncryptedEntry    Code = "ENCRYPTED_ENTRY"
	CodeSymlinkDropped    Code = "SYMLINK_DROPPED"
	CodeTrailingBytes     Code = "TRAILING_BYTES"
	CodeUnicodeCollision  Code = "UNICODE_COLLISION"
	CodeDuplicateName     Code = "DUPLICATE_NAME"
	CodeRatioExceeded     Code = "COMPRESSION_RATIO_EXCEEDED"
)

// Resource / I/O codes shared across subsystems.
const (
	CodeRangeUnsupported Code = "IO_RANGE_UNSUPPORTED"
	CodeRangeMismatch    Code = "IO_RANGE_MISMATCH"
	CodeSourceChanged    Code = "IO_SOURCE_CHANGED"
	CodeCancelled        Code = "OPERATION_CANCELLED"
)
