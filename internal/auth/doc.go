// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package auth provides the user account and session primitives for Taskroster.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their constructors:
//   - NewUser - creates a User with a validated name, email and password hash
//   - NewSession - creates a Session with a validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Authenticator coordinates the session lifecycle:
//   - Login - opens a session for a user that was just verified or created
//   - Authenticate - verifies an email and password, then opens a session
//   - Resolve - maps a session token back to its user
//   - Logout and PurgeExpired - remove sessions
package auth
