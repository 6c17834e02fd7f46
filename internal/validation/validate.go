// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package validation

import (
	"context"
	"sort"

	"github.com/samber/oops"
)

// Validate runs rules over in and returns the failures per field.
// The returned Errors is empty when everything passed. A non-nil error
// means a rule could not be evaluated (for example the uniqueness lookup
// failed) and the Errors result must be ignored.
func Validate(ctx context.Context, in Input, rules Rules) (Errors, error) {
	fields := make([]string, 0, len(rules))
	for field := range rules {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	errs := Errors{}
	for _, name := range fields {
		value, _ := in.Lookup(name)
		f := Field{Name: name, Value: value, Input: in}
		isBlank := blank(value)

		for _, rule := range rules[name] {
			if isBlank && !rule.always {
				continue
			}
			ok, err := rule.check(ctx, f)
			if err != nil {
				return nil, oops.Code("VALIDATION_LOOKUP_FAILED").
					With("field", name).
					With("rule", rule.code).
					Wrap(err)
			}
			if !ok {
				errs.Add(name, rule.code, rule.message(attribute(name)))
				break
			}
		}
	}
	return errs, nil
}
