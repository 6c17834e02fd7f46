// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package validation

import "sort"

// Failure is one rule that did not hold for a field.
type Failure struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors maps field names to their failures in rule order.
// A nil or empty Errors means the input was accepted.
type Errors map[string][]Failure

// Add records a failure for field.
func (e Errors) Add(field, rule, message string) {
	e[field] = append(e[field], Failure{Rule: rule, Message: message})
}

// Fail records that field failed rule, with the rule's own message.
func (e Errors) Fail(field string, rule Rule) {
	e.Add(field, rule.code, rule.message(attribute(field)))
}

// Has reports whether field failed the given rule.
func (e Errors) Has(field, rule string) bool {
	for _, f := range e[field] {
		if f.Rule == rule {
			return true
		}
	}
	return false
}

// Fields returns the failing field names, sorted.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Messages flattens failures into field -> messages for display.
func (e Errors) Messages() map[string][]string {
	out := make(map[string][]string, len(e))
	for field, failures := range e {
		msgs := make([]string, len(failures))
		for i, f := range failures {
			msgs[i] = f.Message
		}
		out[field] = msgs
	}
	return out
}

// First returns the first message of the first failing field in sorted
// order, or "" when there are no failures.
func (e Errors) First() string {
	for _, field := range e.Fields() {
		if fs := e[field]; len(fs) > 0 {
			return fs[0].Message
		}
	}
	return ""
}
