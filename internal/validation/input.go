// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package validation

import (
	"net/url"
	"strings"
)

// Input maps field names to submitted values. A missing key means the field
// was not submitted at all; a key holding "" means it was submitted blank.
// Values are normally string; repeated form keys arrive as []string.
type Input map[string]any

// FromForm converts parsed form values into an Input. Single values become
// strings and repeated keys keep every value.
func FromForm(form url.Values) Input {
	in := make(Input, len(form))
	for k, vs := range form {
		switch len(vs) {
		case 0:
			in[k] = ""
		case 1:
			in[k] = vs[0]
		default:
			in[k] = vs
		}
	}
	return in
}

// Lookup returns the raw value for field and whether it was submitted.
func (in Input) Lookup(field string) (any, bool) {
	v, ok := in[field]
	return v, ok
}

// String returns the field as a string, or "" if absent or not a string.
func (in Input) String(field string) string {
	s, _ := in[field].(string)
	return s
}

// Without returns a copy of in without the named fields.
func (in Input) Without(fields ...string) Input {
	out := make(Input, len(in))
	for k, v := range in {
		out[k] = v
	}
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// blank reports whether v carries no usable content.
func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	default:
		return false
	}
}
