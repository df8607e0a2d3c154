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
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Ismail-elkorchi/bytefold/archive"
	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/Ismail-elkorchi/bytefold/ioutil"
	"github.com/Ismail-elkorchi/bytefold/tar"
	"github.com/Ismail-elkorchi/bytefold/zip"
)

// CollisionPolicy governs entries whose normalized names collide, either
// exactly (OnDuplicate) or under Unicode NFC case-fold (OnCaseCollision).
type CollisionPolicy string

const (
	CollisionError    CollisionPolicy = "error"
	CollisionLastWins CollisionPolicy = "last-wins"
	CollisionRename   CollisionPolicy = "rename"
)

// DropPolicy governs an entry category a normalize pass cannot always
// faithfully carry forward (symlinks, unsupported compression methods).
type DropPolicy string

const (
	DropError DropPolicy = "error"
	DropDrop  DropPolicy = "drop"
)

// NormalizePolicy bundles every decision a normalize pass needs to make
// about collisions and dropped entries.
type NormalizePolicy struct {
	OnDuplicate     CollisionPolicy
	OnCaseCollision CollisionPolicy
	OnSymlink       DropPolicy
	OnUnsupported   DropPolicy
	// Deterministic, when true, zeroes mtimes/uid/gid/uname/gname on every
	// written entry and sorts entries by normalized name before writing.
	Deterministic bool
}

// NormalizeResult summarizes what a Normalize pass did, beyond just the
// rewritten archive bytes: what got renamed, and what got dropped.
type NormalizeResult struct {
	Written int
	Renamed int
	Dropped int
	Issues  []Issue
}

// Normalize rewrites a's entries onto sink deterministically (when
// policy.Deterministic) or in source order, resolving name collisions and
// policy-excluded entries (symlinks, unsupported methods) as configured.
// passwords supplies the password for any WinZip-AES entry that needs
// decrypting first; an entry whose password is missing is treated as
// unsupported.
func Normalize(ctx context.Context, a archive.Archive, sink ioutil.Sink, policy NormalizePolicy, passwords map[string][]byte) (*NormalizeResult, error) {
	switch a.Kind() {
	case archive.KindZip:
		return normalizeZip(ctx, a.ZIP(), sink, policy, passwords)
	case archive.KindTar:
		return normalizeTar(a.TAR(), sink, policy)
	default:
		return nil, errs.New(errs.KindStructural, errs.CodeUnsupportedEntry, "audit: unknown archive kind")
	}
}

// resolver tracks the running set of output names a normalize pass has
// committed to, applying the duplicate/case-collision policies as each
// new candidate name arrives.
type resolver struct {
	policy  NormalizePolicy
	exact   map[string]struct{}
	collide map[string]struct{}
	result  *NormalizeResult
}

func newResolver(policy NormalizePolicy, result *NormalizeResult) *resolver {
	return &resolver{policy: policy, exact: map[string]struct{}{}, collide: map[string]struct{}{}, result: result}
}

// resolve returns the name to actually write for candidate. Under
// CollisionError a duplicate or case-fold collision is returned as an
// error; every non-error return has keep=true.
func (rs *resolver) resolve(candidate string) (name string, keep bool, err error) {
	name = candidate
	if _, dup := rs.exact[name]; dup {
		switch rs.policy.OnDuplicate {
		case CollisionError:
			return "", false, errs.New(errs.KindSecurity, errs.CodeDuplicateName, "normalize: duplicate entry name").WithContext("name", name)
		case CollisionLastWins:
			// The earlier entry under this name was already written; a
			// reader of the resulting archive sees whichever entry comes
			// last, matching how most ZIP/TAR readers resolve duplicates.
			rs.result.Renamed++
		case CollisionRename:
			name = rs.renameUntilFree(name)
			rs.result.Renamed++
		}
	}
	rs.exact[name] = struct{}{}

	key := collisionKey(name)
	if _, dup := rs.collide[key]; dup {
		switch rs.policy.OnCaseCollision {
		case CollisionError:
			return "", false, errs.New(errs.KindSecurity, errs.CodeUnicodeCollision, "normalize: case-fold collision").WithContext("name", name)
		case CollisionLastWins:
			rs.result.Renamed++
		case CollisionRename:
			name = rs.renameUntilFree(name)
			key = collisionKey(name)
			rs.result.Renamed++
		}
	}
	rs.collide[key] = struct{}{}
	return name, true, nil
}

func (rs *resolver) renameUntilFree(name string) string {
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%d", name, i)
		_, exactDup := rs.exact[candidate]
		_, collideDup := rs.collide[collisionKey(candidate)]
		if !exactDup && !collideDup {
			return candidate
		}
	}
}

func normalizeZip(ctx context.Context, r *zip.Reader, sink ioutil.Sink, policy NormalizePolicy, passwords map[string][]byte) (*NormalizeResult, error) {
	entries := append([]*zip.Entry(nil), r.Entries...)
	if policy.Deterministic {
		sort.Slice(entries, func(i, j int) bool { return pathNormalize(entries[i].Name) < pathNormalize(entries[j].Name) })
	}

	result := &NormalizeResult{}
	rs := newResolver(policy, result)
	w := zip.NewWriter(sink, zip.WriterConfig{})

	for _, e := range entries {
		if e.IsSymlink() {
			if policy.OnSymlink == DropError {
				return nil, errs.New(errs.KindSecurity, errs.CodeSymlinkDropped, "normalize: symlink entry").WithContext("name", e.Name)
			}
			result.Dropped++
			result.Issues = append(result.Issues, Issue{Code: errs.CodeSymlinkDropped, Severity: SeverityWarning, EntryName: e.Name, Message: "dropped: symlink"})
			continue
		}
		if !e.Supported() {
			if policy.OnUnsupported == DropError {
				return nil, errs.New(errs.KindUnsupported, errs.CodeUnsupportedEntry, "normalize: unsupported entry").WithContext("name", e.Name)
			}
			result.Dropped++
			result.Issues = append(result.Issues, Issue{Code: errs.CodeUnsupportedEntry, Severity: SeverityWarning, EntryName: e.Name, Message: "dropped: unsupported method"})
			continue
		}

		name, keep, err := rs.resolve(e.Name)
		if err != nil {
			return nil, err
		}
		if !keep {
			result.Dropped++
			continue
		}

		var password []byte
		if e.Encrypted() {
			password = passwords[e.Name]
			if password == nil {
				if policy.OnUnsupported == DropError {
					return nil, errs.New(errs.KindSecurity, errs.CodeEncryptedEntry, "normalize: no password for encrypted entry").WithContext("name", e.Name)
				}
				result.Dropped++
				result.Issues = append(result.Issues, Issue{Code: errs.CodeEncryptedEntry, Severity: SeverityWarning, EntryName: e.Name, Message: "dropped: no password supplied"})
				continue
			}
		}

		body, err := r.Open(ctx, e, password)
		if err != nil {
			return nil, err
		}
		modTime := e.ModTime
		if policy.Deterministic {
			modTime = time.Unix(0, 0).UTC()
		}
		addErr := w.Add(name, body, zip.AddOptions{
			Method:  zip.MethodStore,
			ModTime: modTime,
		})
		closeErr := body.Close()
		if addErr != nil {
			return nil, addErr
		}
		if closeErr != nil {
			return nil, closeErr
		}
		result.Written++
	}

	if err := w.Close(""); err != nil {
		return nil, err
	}
	return result, nil
}

func normalizeTar(r *tar.Reader, sink io.Writer, policy NormalizePolicy) (*NormalizeResult, error) {
	type staged struct {
		hdr  *tar.Header
		body []byte
	}
	var all []staged
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if e, ok := err.(*errs.Error); ok && e.Kind() == errs.KindUnsupported {
				break
			}
			return nil, err
		}
		buf := make([]byte, hdr.Size)
		if _, rerr := io.ReadFull(r, buf); rerr != nil {
			return nil, rerr
		}
		all = append(all, staged{hdr: hdr, body: buf})
	}

	if policy.Deterministic {
		sort.Slice(all, func(i, j int) bool { return pathNormalize(all[i].hdr.Name) < pathNormalize(all[j].hdr.Name) })
	}

	result := &NormalizeResult{}
	rs := newResolver(policy, result)
	w := tar.NewWriter(sink)

	for _, s := range all {
		if s.hdr.IsSymlink() {
			if policy.OnSymlink == DropError {
				return nil, errs.New(errs.KindSecurity, errs.CodeSymlinkDropped, "normalize: symlink entry").WithContext("name", s.hdr.Name)
			}
			result.Dropped++
			continue
		}

		name, keep, err := rs.resolve(s.hdr.Name)
		if err != nil {
			return nil, err
		}
		if !keep {
			result.Dropped++
			continue
		}

		out := *s.hdr
		out.Name = name
		if policy.Deterministic {
			out.ModTime = time.Unix(0, 0).UTC()
			out.UID, out.GID, out.Uname, out.Gname = 0, 0, "", ""
		}
		if err := w.WriteHeader(&out); err != nil {
			return nil, err
		}
		if len(s.body) > 0 {
			if _, err := w.Write(s.body); err != nil {
				return nil, err
			}
		}
		result.Written++
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return result, nil
}
