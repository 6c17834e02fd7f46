// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package invite sends platform invitations by e-mail and records them.
package invite

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Invitation records that someone was invited to the platform.
// Invitations are append-only; the same address may be invited many times.
type Invitation struct {
	ID        ulid.ULID
	Email     string
	InvitedBy *ulid.ULID // nil when the inviter is unknown or was deleted
	CreatedAt time.Time
}

// NewInvitation creates an Invitation with a fresh ID.
func NewInvitation(email string, invitedBy *ulid.ULID) (*Invitation, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, oops.Code("INVITE_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	return &Invitation{
		ID:        ulid.Make(),
		Email:     email,
		InvitedBy: invitedBy,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Repository persists invitations.
type Repository interface {
	// Create stores a new invitation. Duplicate e-mails are accepted.
	Create(ctx context.Context, inv *Invitation) error

	// ListByEmail returns every invitation sent to email, oldest first.
	ListByEmail(ctx context.Context, email string) ([]*Invitation, error)
}
