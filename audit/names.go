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

package audit

import (
	"path"
	"strconv"
	"strings"

	"github.com/Ismail-elkorchi/bytefold/errs"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var fullFold = cases.Fold()

// pathNormalize cleans an archive entry name the way the collision key
// requires: backslashes folded to forward slashes, then path.Clean's
// "." / ".." / doubled-slash collapsing (entry names are always "/"
// separated regardless of host OS, so path.Clean applies, not
// filepath.Clean).
func pathNormalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	clean := path.Clean(name)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "/")
}

// collisionKey computes NFC(fullCaseFold(NFC(pathNormalize(name)))), the
// case/Unicode-insensitive identity two entries collide under.
func collisionKey(name string) string {
	step1 := norm.NFC.String(pathNormalize(name))
	step2 := fullFold.String(step1)
	return norm.NFC.String(step2)
}

// checkPathTraversal rejects ".." segments, absolute paths, and
// Windows drive-letter paths, independent of which container format the
// name came from.
func checkPathTraversal(name string) *errs.Error {
	if name == "" {
		return errs.New(errs.KindSecurity, errs.CodePathTraversal, "audit: empty entry name")
	}
	clean := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(clean, "/") {
		return errs.New(errs.KindSecurity, errs.CodePathTraversal, "audit: absolute path").WithContext("name", name)
	}
	if len(clean) >= 2 && clean[1] == ':' {
		return errs.New(errs.KindSecurity, errs.CodePathTraversal, "audit: drive-letter path").WithContext("name", name)
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return errs.New(errs.KindSecurity, errs.CodePathTraversal, "audit: path traversal segment").WithContext("name", name)
		}
	}
	return nil
}

func containsNUL(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}

func fmtUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
