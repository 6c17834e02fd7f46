// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by UserRepository.Create when another user
// already owns the e-mail address.
var ErrDuplicateEmail = errors.New("email already registered")
