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
	"context"
	"io"

	"github.com/Ismail-elkorchi/bytefold/archive"
	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/Ismail-elkorchi/bytefold/limits"
)

// entryView is the subset of a ZIP or TAR entry's metadata every
// mandatory check needs, letting auditEntries stay format-agnostic.
type entryView struct {
	name             string
	uncompressedSize uint64
	compressedSize   uint64 // 0 when the format has no separate notion (TAR)
	encrypted        bool
	supported        bool
	isSymlink        bool
	isDir            bool
}

// Audit walks a (with Archive.Open, an already-dispatched) Archive
// read-only and returns a Report, applying profile's downgrade policy to
// structural/unsupported findings.
func Audit(ctx context.Context, a archive.Archive, cfg limits.Config, profile limits.Profile) (*Report, error) {
	cfg = cfg.ApplyDefaults(limits.Default)
	entry, ok := limits.Profiles[profile]
	if !ok {
		entry = limits.Profiles[limits.ProfileStrict]
	}

	rpt := &Report{}
	seenExact := map[string]string{}    // exact path -> first entry name with it
	seenCollide := map[string]string{}  // collision key -> first entry name with it
	var totalUncompressed uint64

	views, trailing, err := collectEntries(a)
	if err != nil {
		return nil, err
	}
	rpt.TrailingBytes = trailing

	for _, v := range views {
		if err := ctx.Err(); err != nil {
			return nil, errs.New(errs.KindCancelled, errs.CodeCancelled, "audit: cancelled").Wrap(err)
		}
		rpt.Entries++
		totalUncompressed += v.uncompressedSize

		hasName := v.name != ""
		if hasName {
			if tErr := checkPathTraversal(v.name); tErr != nil {
				rpt.record(issueFromError(tErr, v.name, entry.DowngradeUnsupportedCheck))
			}
			if containsNUL(v.name) {
				rpt.record(Issue{
					Code: errs.CodeNulInName, Severity: SeverityError,
					Message: "entry name contains a NUL byte", EntryName: v.name,
				})
			}
		}
		if v.encrypted {
			rpt.EncryptedEntries++
			rpt.record(Issue{
				Code: errs.CodeEncryptedEntry, Severity: SeverityWarning,
				Message: "entry is encrypted", EntryName: v.name,
			})
		}
		if !v.supported {
			rpt.UnsupportedEntries++
			sev := SeverityError
			if entry.DowngradeUnsupportedCheck {
				sev = SeverityWarning
			}
			rpt.record(Issue{
				Code: errs.CodeUnsupportedEntry, Severity: sev,
				Message: "entry uses an unsupported compression method", EntryName: v.name,
			})
		}
		if v.isSymlink {
			rpt.record(Issue{
				Code: errs.CodeSymlinkDropped, Severity: SeverityWarning,
				Message: "entry is a symbolic link", EntryName: v.name,
			})
		}

		if v.compressedSize > 0 && cfg.MaxCompressionRatio > 0 {
			ratio := float64(v.uncompressedSize) / float64(v.compressedSize)
			if ratio > cfg.MaxCompressionRatio {
				rpt.record(Issue{
					Code: errs.CodeRatioExceeded, Severity: SeverityError,
					Message: "entry's compression ratio exceeds the configured ceiling", EntryName: v.name,
				})
			}
		}
		if v.uncompressedSize > cfg.MaxEntryUncompressed.Uint64() {
			rpt.record(Issue{
				Code: errs.CodeCompressionResourceLimit, Severity: SeverityError,
				Message: "entry's uncompressed size exceeds the configured ceiling", EntryName: v.name,
			})
		}

		if !hasName {
			continue
		}

		if _, dup := seenExact[v.name]; dup {
			rpt.record(Issue{
				Code: errs.CodeDuplicateName, Severity: SeverityWarning,
				Message: "entry name duplicates an earlier entry", EntryName: v.name,
			})
		} else {
			seenExact[v.name] = v.name
		}

		key := collisionKey(v.name)
		if first, collide := seenCollide[key]; collide && first != v.name {
			rpt.record(Issue{
				Code: errs.CodeUnicodeCollision, Severity: SeverityWarning,
				Message:        "entry name collides with another entry under Unicode NFC case-fold",
				EntryName:      v.name,
				NormalizedName: key,
			})
		} else if !collide {
			seenCollide[key] = v.name
		}
	}

	if totalUncompressed > cfg.MaxTotalUncompressed.Uint64() {
		rpt.record(Issue{
			Code: errs.CodeCompressionResourceLimit, Severity: SeverityError,
			Message: "archive's total uncompressed size exceeds the configured ceiling",
		})
	}

	return rpt, nil
}

func issueFromError(e *errs.Error, entryName string, downgrade bool) Issue {
	sev := SeverityError
	if downgrade && (e.Kind() == errs.KindStructural || e.Kind() == errs.KindUnsupported) {
		sev = SeverityWarning
	}
	return Issue{Code: e.Code(), Severity: sev, Message: e.Error(), EntryName: entryName}
}

// collectEntries adapts whichever concrete reader Archive wraps into a
// flat []entryView. The trailing-bytes result is always nil: neither the
// ZIP nor the TAR collector detects bytes past the container's logical end.
func collectEntries(a archive.Archive) ([]entryView, *uint64, error) {
	switch a.Kind() {
	case archive.KindZip:
		return collectZipEntries(a)
	case archive.KindTar:
		return collectTarEntries(a)
	default:
		return nil, nil, errs.New(errs.KindStructural, errs.CodeUnsupportedEntry, "audit: unknown archive kind")
	}
}

func collectZipEntries(a archive.Archive) ([]entryView, *uint64, error) {
	r := a.ZIP()
	views := make([]entryView, 0, len(r.Entries))
	for _, e := range r.Entries {
		views = append(views, entryView{
			name:             e.Name,
			uncompressedSize: e.UncompressedSize,
			compressedSize:   e.CompressedSize,
			encrypted:        e.Encrypted(),
			supported:        e.Supported(),
			isSymlink:        e.IsSymlink(),
			isDir:            e.IsDir(),
		})
	}
	return views, nil, nil
}

func collectTarEntries(a archive.Archive) ([]entryView, *uint64, error) {
	r := a.TAR()
	var views []entryView
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if tarErr, ok := err.(*errs.Error); ok && tarErr.Kind() == errs.KindUnsupported {
				views = append(views, entryView{name: "", supported: false})
				break
			}
			return views, nil, err
		}
		views = append(views, entryView{
			name:             hdr.Name,
			uncompressedSize: uint64(hdr.Size),
			supported:        true,
			isSymlink:        hdr.IsSymlink(),
			isDir:            hdr.IsDir(),
		})
	}
	return views, nil, nil
}
