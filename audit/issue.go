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

// Package audit walks a parsed ZIP or TAR archive read-only and reports
// structural, security, and resource-limit issues with stable codes,
// then (separately) rewrites an archive deterministically once those
// issues have been resolved under an explicit policy.
package audit

import "github.com/Ismail-elkorchi/bytefold/errs"

// Severity distinguishes an issue that fails the audit (Error) from one
// that is merely recorded (Warning). A compat-profile downgrade turns a
// SeverityError into a SeverityWarning for a defined subset of codes; it
// never silently drops an issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one finding from an audit pass.
type Issue struct {
	Code      errs.Code
	Severity  Severity
	Message   string
	EntryName string
	// NormalizedName is set only on *_UNICODE_COLLISION issues: the
	// pathNormalize -> NFC -> fullCaseFold -> NFC key the colliding
	// names share, so a caller can render a diff without re-deriving it.
	NormalizedName string
}
