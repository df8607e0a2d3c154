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

import "encoding/json"

// SchemaVersion is the stable version tag every Report.ToJSON output
// carries, so a consumer can evolve its parser without guessing.
const SchemaVersion = "1"

// Report is the summary an Audit pass returns: running counters plus the
// full list of Issues that produced them.
type Report struct {
	Entries            uint64
	EncryptedEntries   uint64
	UnsupportedEntries uint64
	Warnings           uint64
	Errors             uint64
	// TrailingBytes is non-nil only when the source has bytes after the
	// container's logical end (e.g. past a ZIP's EOCD comment, or past a
	// TAR's two-block end-of-archive marker).
	TrailingBytes *uint64
	Issues        []Issue
}

// OK reports whether the audit found zero severity-error issues.
func (r *Report) OK() bool {
	return r.Errors == 0
}

// record appends an issue and advances the matching counter(s).
func (r *Report) record(issue Issue) {
	r.Issues = append(r.Issues, issue)
	switch issue.Severity {
	case SeverityError:
		r.Errors++
	default:
		r.Warnings++
	}
}

// reportJSON mirrors Report but renders every count as a base-10 string,
// matching the wire convention every offset/count in the data model uses
// to avoid 53-bit float precision loss in JSON consumers.
type reportJSON struct {
	SchemaVersion      string      `json:"schemaVersion"`
	OK                 bool        `json:"ok"`
	Entries            string      `json:"entries"`
	EncryptedEntries   string      `json:"encryptedEntries"`
	UnsupportedEntries string      `json:"unsupportedEntries"`
	Warnings           string      `json:"warnings"`
	Errors             string      `json:"errors"`
	TrailingBytes      *string     `json:"trailingBytes,omitempty"`
	Issues             []issueJSON `json:"issues"`
}

type issueJSON struct {
	Code           string `json:"code"`
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	EntryName      string `json:"entryName,omitempty"`
	NormalizedName string `json:"normalizedName,omitempty"`
}

// ToJSON renders the report as the schema-versioned object every
// report/error JSON payload uses across this module.
func (r *Report) ToJSON() ([]byte, error) {
	out := reportJSON{
		SchemaVersion:      SchemaVersion,
		OK:                 r.OK(),
		Entries:            fmtUint(r.Entries),
		EncryptedEntries:   fmtUint(r.EncryptedEntries),
		UnsupportedEntries: fmtUint(r.UnsupportedEntries),
		Warnings:           fmtUint(r.Warnings),
		Errors:             fmtUint(r.Errors),
	}
	if r.TrailingBytes != nil {
		s := fmtUint(*r.TrailingBytes)
		out.TrailingBytes = &s
	}
	for _, issue := range r.Issues {
		out.Issues = append(out.Issues, issueJSON{
			Code:           string(issue.Code),
			Severity:       string(issue.Severity),
			Message:        issue.Message,
			EntryName:      issue.EntryName,
			NormalizedName: issue.NormalizedName,
		})
	}
	return json.Marshal(out)
}
