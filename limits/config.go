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

// Package limits centralizes every resource ceiling named in the data model:
// entry counts, byte ceilings, XZ-specific preflight bounds, and ZIP
// central-directory bounds. Config values are checked before allocation and
// after each decoded chunk by the subsystems that own the relevant buffer.
package limits

import (
	"github.com/Ismail-elkorchi/bytefold/errs"
	"github.com/mitchellh/mapstructure"
)

// Config is a single, explicit bundle of named ceilings. Zero value fields
// (left unset by a partial decode) fall back to Default's values via
// ApplyDefaults, so user-supplied values only override the fields they name.
type Config struct {
	// Archive-wide.
	MaxEntries            uint64
	MaxEntryUncompressed   Size
	MaxTotalUncompressed   Size
	MaxCompressionRatio    float64
	MaxDictionaryBytes     Size

	// XZ-specific.
	MaxXZIndexRecords       uint64
	MaxXZIndexBytes         Size
	MaxXZBufferedInput      Size
	MaxXZPreflightBlocks    uint64

	// ZIP-specific.
	MaxZipCentralDirBytes Size
	MaxZipCommentBytes    Size
	MaxZipEOCDSearchWindow Size

	// bzip2-specific.
	MaxBzip2BlockSize Size
}

// Default is the conservative preset suited to interactive/manual use:
// generous ceilings, errors only on genuinely pathological input.
var Default = Config{
	MaxEntries:             1 << 20,
	MaxEntryUncompressed:   16 * SizeGiga,
	MaxTotalUncompressed:   64 * SizeGiga,
	MaxCompressionRatio:    1024,
	MaxDictionaryBytes:     1 * SizeGiga,
	MaxXZIndexRecords:      1 << 20,
	MaxXZIndexBytes:        64 * SizeMega,
	MaxXZBufferedInput:     1 * SizeMega,
	MaxXZPreflightBlocks:   1 << 20,
	MaxZipCentralDirBytes:  256 * SizeMega,
	MaxZipCommentBytes:     65535,
	MaxZipEOCDSearchWindow: 64*SizeKilo + 22,
	MaxBzip2BlockSize:      900 * SizeKilo,
}

// Agent is the frozen preset for untrusted, automated (e.g. LLM-agent
// driven) extraction: tighter ceilings than Default to bound worst-case
// memory and CPU when the caller cannot eyeball the archive first.
var Agent = Config{
	MaxEntries:             1 << 16,
	MaxEntryUncompressed:   512 * SizeMega,
	MaxTotalUncompressed:   2 * SizeGiga,
	MaxCompressionRatio:    200,
	MaxDictionaryBytes:     64 * SizeMega,
	MaxXZIndexRecords:      1 << 14,
	MaxXZIndexBytes:        4 * SizeMega,
	MaxXZBufferedInput:     1 * SizeMega,
	MaxXZPreflightBlocks:   1 << 14,
	MaxZipCentralDirBytes:  16 * SizeMega,
	MaxZipCommentBytes:     65535,
	MaxZipEOCDSearchWindow: 64*SizeKilo + 22,
	MaxBzip2BlockSize:      900 * SizeKilo,
}

// Profile names the strictness/limit bundle a reader or writer runs under.
// Resolved here, rather than inferred from context, per the Open Question in
// whether the compat profile downgrades unsupported-check errors to
// warnings is an explicit per-profile decision.
type Profile string

const (
	ProfileStrict Profile = "strict"
	ProfileCompat Profile = "compat"
	ProfileAgent  Profile = "agent"
)

// ProfileEntry pairs a Profile's Config with its downgrade behavior.
type ProfileEntry struct {
	Config                   Config
	DowngradeUnsupportedCheck bool
}

// Profiles is the explicit per-profile table; strict and agent never
// downgrade structural/encoding issues to warnings, compat does.
var Profiles = map[Profile]ProfileEntry{
	ProfileStrict: {Config: Default, DowngradeUnsupportedCheck: false},
	ProfileCompat: {Config: Default, DowngradeUnsupportedCheck: true},
	ProfileAgent:  {Config: Agent, DowngradeUnsupportedCheck: false},
}

// ApplyDefaults fills every zero-valued field of c from def, returning the
// merged Config. c is not mutated.
func (c Config) ApplyDefaults(def Config) Config {
	out := c
	if out.MaxEntries == 0 {
		out.MaxEntries = def.MaxEntries
	}
	if out.MaxEntryUncompressed == 0 {
		out.MaxEntryUncompressed = def.MaxEntryUncompressed
	}
	if out.MaxTotalUncompressed == 0 {
		out.MaxTotalUncompressed = def.MaxTotalUncompressed
	}
	if out.MaxCompressionRatio == 0 {
		out.MaxCompressionRatio = def.MaxCompressionRatio
	}
	if out.MaxDictionaryBytes == 0 {
		out.MaxDictionaryBytes = def.MaxDictionaryBytes
	}
	if out.MaxXZIndexRecords == 0 {
		out.MaxXZIndexRecords = def.MaxXZIndexRecords
	}
	if out.MaxXZIndexBytes == 0 {
		out.MaxXZIndexBytes = def.MaxXZIndexBytes
	}
	if out.MaxXZBufferedInput == 0 {
		out.MaxXZBufferedInput = def.MaxXZBufferedInput
	}
	if out.MaxXZPreflightBlocks == 0 {
		out.MaxXZPreflightBlocks = def.MaxXZPreflightBlocks
	}
	if out.MaxZipCentralDirBytes == 0 {
		out.MaxZipCentralDirBytes = def.MaxZipCentralDirBytes
	}
	if out.MaxZipCommentBytes == 0 {
		out.MaxZipCommentBytes = def.MaxZipCommentBytes
	}
	if out.MaxZipEOCDSearchWindow == 0 {
		out.MaxZipEOCDSearchWindow = def.MaxZipEOCDSearchWindow
	}
	if out.MaxBzip2BlockSize == 0 {
		out.MaxBzip2BlockSize = def.MaxBzip2BlockSize
	}
	return out
}

// DecodeConfig decodes a generic map (e.g. parsed YAML/JSON/TOML) into a
// Config using mapstructure, so hosts can load limits from the same config
// files they use for everything else, matching the rest of this package's size type
// viper/mapstructure decode-hook convention.
func DecodeConfig(raw map[string]interface{}) (Config, error) {
	var c Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LimitError builds the stable Policy/Limit error shape required/limit
// context naming convention: context carries requiredX and
// limitX string values.
func LimitError(code errs.Code, resource string, required, limit uint64) *errs.Error {
	return errs.New(errs.KindLimit, code, resource+" exceeds configured ceiling").
		WithHint("raise the corresponding limits.Config field or use a less restrictive profile").
		WithContext(
			"required"+resource, u64s(required),
			"limit"+resource, u64s(limit),
		)
}

func u64s(v uint64) string {
	return fmtUint(v)
}
