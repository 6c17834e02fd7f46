// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package validation

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Rule codes reported in Failure.Rule.
const (
	CodeRequired  = "required"
	CodeString    = "string"
	CodeMax       = "max"
	CodeEmail     = "email"
	CodeUnique    = "unique"
	CodeConfirmed = "confirmed"
	CodeMin       = "min"
	CodeMixedCase = "mixed_case"
)

// ConfirmationSuffix names the companion field Confirmed compares against.
const ConfirmationSuffix = "_confirmation"

// Field is what a rule sees: the field name, its value and the full input.
type Field struct {
	Name  string
	Value any
	Input Input
}

// Rule is one predicate in a field's rule list.
type Rule struct {
	code    string
	always  bool // evaluated even when the value is blank
	check   func(ctx context.Context, f Field) (bool, error)
	message func(attr string) string
}

// Code returns the rule code reported on failure.
func (r Rule) Code() string { return r.code }

// Rules maps a field name to its ordered rule list.
type Rules map[string][]Rule

// Required fails when the field is absent or blank after trimming.
var Required = Rule{
	code:   CodeRequired,
	always: true,
	check: func(_ context.Context, f Field) (bool, error) {
		return !blank(f.Value), nil
	},
	message: func(attr string) string { return fmt.Sprintf("The %s field is required.", attr) },
}

// String fails when the value is not a single valid UTF-8 string.
var String = Rule{
	code: CodeString,
	check: func(_ context.Context, f Field) (bool, error) {
		s, ok := f.Value.(string)
		return ok && utf8.ValidString(s), nil
	},
	message: func(attr string) string { return fmt.Sprintf("The %s must be a string.", attr) },
}

// Email fails when the value is not a bare RFC 5322 address such as
// user@example.com. Display names and angle brackets are rejected.
var Email = Rule{
	code: CodeEmail,
	check: func(_ context.Context, f Field) (bool, error) {
		s, ok := f.Value.(string)
		return ok && validEmail(s), nil
	},
	message: func(attr string) string { return fmt.Sprintf("The %s must be a valid email address.", attr) },
}

// Confirmed fails unless <field>_confirmation is present, non-blank and
// exactly equal to the value. Blank against blank fails.
var Confirmed = Rule{
	code:   CodeConfirmed,
	always: true,
	check: func(_ context.Context, f Field) (bool, error) {
		s, ok := f.Value.(string)
		if !ok || blank(s) {
			return false, nil
		}
		companion, ok := f.Input[f.Name+ConfirmationSuffix].(string)
		if !ok || blank(companion) {
			return false, nil
		}
		return companion == s, nil
	},
	message: func(attr string) string { return fmt.Sprintf("The %s confirmation does not match.", attr) },
}

// MixedCase fails unless the value has at least one ASCII upper-case and
// one ASCII lower-case letter.
var MixedCase = Rule{
	code: CodeMixedCase,
	check: func(_ context.Context, f Field) (bool, error) {
		s, _ := f.Value.(string)
		var upper, lower bool
		for i := 0; i < len(s); i++ {
			switch c := s[i]; {
			case c >= 'A' && c <= 'Z':
				upper = true
			case c >= 'a' && c <= 'z':
				lower = true
			}
		}
		return upper && lower, nil
	},
	message: func(attr string) string {
		return fmt.Sprintf("The %s must contain at least one uppercase and one lowercase letter.", attr)
	},
}

// MaxLength fails when a string value has more than n characters.
func MaxLength(n int) Rule {
	return Rule{
		code: CodeMax,
		check: func(_ context.Context, f Field) (bool, error) {
			s, ok := f.Value.(string)
			return !ok || utf8.RuneCountInString(s) <= n, nil
		},
		message: func(attr string) string {
			return fmt.Sprintf("The %s must not be greater than %d characters.", attr, n)
		},
	}
}

// MinLength fails when a string value has fewer than n characters.
func MinLength(n int) Rule {
	return Rule{
		code: CodeMin,
		check: func(_ context.Context, f Field) (bool, error) {
			s, ok := f.Value.(string)
			return !ok || utf8.RuneCountInString(s) >= n, nil
		},
		message: func(attr string) string {
			return fmt.Sprintf("The %s must be at least %d characters.", attr, n)
		},
	}
}

// ExistenceChecker answers whether a record with column = value exists.
type ExistenceChecker interface {
	Exists(ctx context.Context, column, value string) (bool, error)
}

// ExistsFunc adapts a function to ExistenceChecker.
type ExistsFunc func(ctx context.Context, column, value string) (bool, error)

// Exists implements ExistenceChecker.
func (fn ExistsFunc) Exists(ctx context.Context, column, value string) (bool, error) {
	return fn(ctx, column, value)
}

// Unique fails when checker already holds a record whose column equals the
// value. A checker error aborts validation.
func Unique(checker ExistenceChecker, column string) Rule {
	return Rule{
		code: CodeUnique,
		check: func(ctx context.Context, f Field) (bool, error) {
			s, ok := f.Value.(string)
			if !ok {
				return true, nil
			}
			exists, err := checker.Exists(ctx, column, s)
			if err != nil {
				return false, err
			}
			return !exists, nil
		},
		message: func(attr string) string { return fmt.Sprintf("The %s has already been taken.", attr) },
	}
}

func validEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && at < len(s)-1
}

// attribute turns a field key into display text: "email_address" -> "email address".
func attribute(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
