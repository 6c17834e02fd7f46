// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package validation evaluates ordered rule lists over submitted form fields.
//
// Each field's rules run in declared order and stop at the first failure.
// Every field is evaluated, so one call reports all failing fields at once.
// Rules other than Required and Confirmed pass on an absent or blank value;
// pair them with Required when the field is mandatory.
//
// Failures carry a stable rule code (see the Code* constants) and a human
// message. Callers branch on the code; the message is for display only.
package validation
