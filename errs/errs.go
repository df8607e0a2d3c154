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

// Package errs implements the typed error taxonomy shared by every bytefold
// subsystem: a stable string code per failure mode, grouped by subsystem in
// codes.go, wrapped in an Error that also carries a Kind, a remediation hint,
// and a string-keyed context map suitable for lossless JSON encoding.
package errs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies an Error into one of the taxonomy buckets from the error
// handling design: Structural, Integrity, Unsupported, Policy/Limit,
// Security, or IO. Kind is orthogonal to Code: many codes can share a Kind.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindStructural
	KindIntegrity
	KindUnsupported
	KindLimit
	KindSecurity
	KindIO
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindIntegrity:
		return "integrity"
	case KindUnsupported:
		return "unsupported"
	case KindLimit:
		return "limit"
	case KindSecurity:
		return "security"
	case KindIO:
		return "io"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Code is a stable, per-taxonomy-entry identifier such as "ZIP_BAD_CRC" or
// "COMPRESSION_XZ_BUFFER_LIMIT". Codes are plain strings declared as
// constants in codes.go, so they cannot be renumbered.
type Code string

// SchemaVersion is the fixed version tag every Error and audit Report JSON
// payload carries, per the schema-versioned JSON wire contract.
const SchemaVersion = "1"

// Error is the bytefold error value. It always implements the standard
// library error interface and additionally exposes the structured fields the
// error.schema.json contract requires.
type Error struct {
	kind    Kind
	code    Code
	message string
	hint    string
	context map[string]string
	parent  error
}

// New creates an Error of the given kind/code/message with no parent error
// and no context. Use With* methods to attach context before returning it.
func New(kind Kind, code Code, message string) *Error {
	return &Error{kind: kind, code: code, message: message}
}

// Newf is New with fmt.Sprintf-style formatting of the message.
func Newf(kind Kind, code Code, format string, args ...interface{}) *Error {
	return New(kind, code, fmt.Sprintf(format, args...))
}

// Wrap attaches a parent error, preserving the original as the error chain
// root reachable via errors.Unwrap.
func (e *Error) Wrap(parent error) *Error {
	n := *e
	n.parent = parent
	if n.context != nil {
		c := make(map[string]string, len(n.context))
		for k, v := range n.context {
			c[k] = v
		}
		n.context = c
	}
	return &n
}

// WithHint attaches a short, human-readable remediation string.
func (e *Error) WithHint(hint string) *Error {
	n := *e
	n.hint = hint
	return &n
}

// WithContext merges key/value pairs into the error's context map. Context
// keys must never shadow the top-level JSON keys (schemaVersion, name, code,
// message, hint, context itself); WithContext silently drops any key that
// collides, since a silently-dropped diagnostic key is safer than a
// corrupted wire shape.
func (e *Error) WithContext(kv ...string) *Error {
	n := *e
	if n.context == nil {
		n.context = make(map[string]string, len(kv)/2)
	} else {
		c := make(map[string]string, len(n.context)+len(kv)/2)
		for k, v := range n.context {
			c[k] = v
		}
		n.context = c
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if isReservedContextKey(kv[i]) {
			continue
		}
		n.context[kv[i]] = kv[i+1]
	}
	return &n
}

func isReservedContextKey(k string) bool {
	switch k {
	case "schemaVersion", "name", "code", "message", "hint", "context":
		return true
	default:
		return false
	}
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.code))
	if e.message != "" {
		b.WriteString(": ")
		b.WriteString(e.message)
	}
	if e.parent != nil {
		b.WriteString(": ")
		b.WriteString(e.parent.Error())
	}
	return b.String()
}

// Unwrap exposes the parent error to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.parent
}

// Kind returns the taxonomy bucket of this error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Code returns the stable string code of this error.
func (e *Error) Code() Code {
	return e.code
}

// Context returns a copy of the context map.
func (e *Error) Context() map[string]string {
	c := make(map[string]string, len(e.context))
	for k, v := range e.context {
		c[k] = v
	}
	return c
}

// Is supports errors.Is comparisons purely on Code, so callers can write
// errors.Is(err, errs.New(errs.KindLimit, CodeCompressionResourceLimit, "")) style
// sentinels, or more commonly compare against a package-level *Error value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.code == e.code
}

// jsonError is the wire shape described by error.schema.json: schemaVersion,
// name, code, message, hint, context. "name" mirrors Kind.String() so a
// consumer without access to bytefold's Go types can still branch on it.
type jsonError struct {
	SchemaVersion string            `json:"schemaVersion"`
	Name          string            `json:"name"`
	Code          string            `json:"code"`
	Message       string            `json:"message"`
	Hint          string            `json:"hint,omitempty"`
	Context       map[string]string `json:"context,omitempty"`
}

// MarshalJSON implements json.Marshaler with the stable shape every report
// and error object must carry.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonError{
		SchemaVersion: SchemaVersion,
		Name:          e.kind.String(),
		Code:          string(e.code),
		Message:       e.message,
		Hint:          e.hint,
		Context:       e.context,
	})
}
