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

package limits

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a byte quantity that parses and formats itself from human strings
// like "64K" or "1.5G", the way a human-friendly size type does for config
// fields. bytefold uses it for every byte-denominated ceiling in Config.
type Size uint64

// Binary byte-size units. bytefold standardizes on binary (1024-based)
// multiples for all ceilings, since every limit in section 3 bounds actual
// allocated memory or buffered bytes rather than a marketed decimal size.
const (
	SizeUnit Size = 1
	SizeKilo      = SizeUnit << 10
	SizeMega      = SizeKilo << 10
	SizeGiga      = SizeMega << 10
	SizeTera      = SizeGiga << 10
	SizePeta      = SizeTera << 10
)

var unitSuffixes = []struct {
	suffix string
	size   Size
}{
	{"PB", SizePeta}, {"P", SizePeta},
	{"TB", SizeTera}, {"T", SizeTera},
	{"GB", SizeGiga}, {"G", SizeGiga},
	{"MB", SizeMega}, {"M", SizeMega},
	{"KB", SizeKilo}, {"K", SizeKilo},
	{"B", SizeUnit},
}

// ParseSize parses a human byte-size string. It is case-insensitive and
// accepts a bare number (bytes), "1K".."1PB", and fractional multiples like
// "1.5G".
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("limits: empty size")
	}

	up := strings.ToUpper(s)
	for _, u := range unitSuffixes {
		if strings.HasSuffix(up, u.suffix) {
			numPart := strings.TrimSpace(s[:len(s)-len(u.suffix)])
			if numPart == "" {
				return 0, fmt.Errorf("limits: missing numeric part in %q", s)
			}
			f, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("limits: invalid size %q: %w", s, err)
			}
			if f < 0 {
				return 0, fmt.Errorf("limits: negative size %q", s)
			}
			return Size(f * float64(u.size)), nil
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("limits: invalid size %q: %w", s, err)
	}
	return Size(n), nil
}

// String formats the size using the largest unit that divides it evenly,
// falling back to raw bytes.
func (s Size) String() string {
	switch {
	case s >= SizePeta && s%SizePeta == 0:
		return fmt.Sprintf("%dP", uint64(s/SizePeta))
	case s >= SizeTera && s%SizeTera == 0:
		return fmt.Sprintf("%dT", uint64(s/SizeTera))
	case s >= SizeGiga && s%SizeGiga == 0:
		return fmt.Sprintf("%dG", uint64(s/SizeGiga))
	case s >= SizeMega && s%SizeMega == 0:
		return fmt.Sprintf("%dM", uint64(s/SizeMega))
	case s >= SizeKilo && s%SizeKilo == 0:
		return fmt.Sprintf("%dK", uint64(s/SizeKilo))
	default:
		return fmt.Sprintf("%dB", uint64(s))
	}
}

// Uint64 returns the size as a plain byte count.
func (s Size) Uint64() uint64 {
	return uint64(s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Size) UnmarshalText(b []byte) error {
	v, err := ParseSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
