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

// Package tar reads and writes the ustar + PAX TAR container format per
// POSIX 1003.1-2001: fixed 512-byte headers with octal or base-256 numeric
// fields, PAX extended-header records overriding name/linkpath/size/mtime,
// and long-path promotion to a PAX extension on write.
package tar

import (
	"time"
)

const blockSize = 512

// Field byte ranges within one 512-byte ustar header block.
const (
	offName     = 0
	lenName     = 100
	offMode     = 100
	lenMode     = 8
	offUID      = 108
	lenUID      = 8
	offGID      = 116
	lenGID      = 8
	offSize     = 124
	lenSize     = 12
	offMtime    = 136
	lenMtime    = 12
	offChksum   = 148
	lenChksum   = 8
	offTypeflag = 156
	offLinkname = 157
	lenLinkname = 100
	offMagic    = 257
	lenMagic    = 6
	offVersion  = 263
	lenVersion  = 2
	offUname    = 265
	lenUname    = 32
	offGname    = 297
	lenGname    = 32
	offDevmajor = 329
	lenDevmajor = 8
	offDevminor = 337
	lenDevminor = 8
	offPrefix   = 345
	lenPrefix   = 155
)

const ustarMagic = "ustar\x00"

// Typeflag values this package distinguishes, POSIX 1003.1-2001 section
// 10.1.1 plus the PAX ('x'/'g') and GNU sparse ('S') extensions.
const (
	TypeRegular   byte = '0'
	TypeRegularA  byte = '\x00' // pre-POSIX implicit regular file
	TypeLink      byte = '1'
	TypeSymlink   byte = '2'
	TypeChar      byte = '3'
	TypeBlock     byte = '4'
	TypeDir       byte = '5'
	TypeFifo      byte = '6'
	TypeContig    byte = '7'
	TypePaxLocal  byte = 'x'
	TypePaxGlobal byte = 'g'
	TypeGNUSparse byte = 'S'
	TypeGNULongName byte = 'L'
	TypeGNULongLink byte = 'K'
)

// Header is the logical view of one TAR entry, after PAX overrides (if any)
// have been folded in.
type Header struct {
	Name     string
	Linkname string
	Size     int64
	Mode     int64
	UID      int64
	GID      int64
	Uname    string
	Gname    string
	ModTime  time.Time
	Typeflag byte
	Devmajor int64
	Devminor int64
}

// IsDir reports whether the header names a directory.
func (h *Header) IsDir() bool {
	return h.Typeflag == TypeDir || (len(h.Name) > 0 && h.Name[len(h.Name)-1] == '/')
}

// IsSymlink reports whether the header names a symbolic link.
func (h *Header) IsSymlink() bool {
	return h.Typeflag == TypeSymlink
}

// blockCount returns how many 512-byte blocks size bytes of payload occupy,
// rounded up, matching ustar's fixed-block padding rule.
func blockCount(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + blockSize - 1) / blockSize
}
