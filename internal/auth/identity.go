// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package auth

import "context"

// Identity is the authenticated user behind a request.
type Identity struct {
	User    *User
	Session *Session
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
