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
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodeCP437 decodes legacy (non-UTF-8-flagged) ZIP names and comments
// per APPNOTE's IBM Code Page 437 default, using x/text's CP437 table
// rather than hand-rolling the 128-entry high half.
func decodeCP437(b []byte) string {
	out, err := charmap.CodePage437.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// looksLikeUTF8 reports whether raw name/comment bytes already form valid
// UTF-8 despite the UTF-8 flag being unset, a common deviation some writers
// exhibit (Go's archive/zip and the minio zipindex reader both special-case
// this rather than trust the flag blindly, but bytefold trusts the flag:
// decoding depends on the flag, with unicode-extra as the only override
// path).
func looksLikeUTF8(b []byte) bool {
	return utf8.Valid(b)
}
