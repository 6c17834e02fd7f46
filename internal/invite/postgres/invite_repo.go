// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package postgres stores invitations in PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskroster/taskroster/internal/invite"
)

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository implements invite.Repository using PostgreSQL.
type Repository struct {
	db Querier
}

// NewRepository creates a new Repository.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// Create inserts an invitation row.
func (r *Repository) Create(ctx context.Context, inv *invite.Invitation) error {
	var invitedBy *string
	if inv.InvitedBy != nil {
		s := inv.InvitedBy.String()
		invitedBy = &s
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO invites (id, email, invited_by, created_at)
		VALUES ($1, $2, $3, $4)
	`, inv.ID.String(), inv.Email, invitedBy, inv.CreatedAt)
	if err != nil {
		return oops.Code("INVITE_CREATE_FAILED").
			With("operation", "insert invitation").
			With("email", inv.Email).
			Wrap(err)
	}
	return nil
}

// ListByEmail returns the invitations sent to email, oldest first.
func (r *Repository) ListByEmail(ctx context.Context, email string) ([]*invite.Invitation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, email, invited_by, created_at
		FROM invites
		WHERE lower(email) = lower($1)
		ORDER BY created_at, id
	`, email)
	if err != nil {
		return nil, oops.Code("INVITE_LIST_FAILED").
			With("operation", "list invitations").
			With("email", email).
			Wrap(err)
	}
	defer rows.Close()

	var invitations []*invite.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("INVITE_LIST_FAILED").
			With("operation", "iterate invitations").
			With("email", email).
			Wrap(err)
	}
	return invitations, nil
}

func scanInvitation(row pgx.Row) (*invite.Invitation, error) {
	var (
		idStr     string
		invitedBy *string
		inv       invite.Invitation
	)
	if err := row.Scan(&idStr, &inv.Email, &invitedBy, &inv.CreatedAt); err != nil {
		return nil, oops.Code("INVITE_SCAN_FAILED").
			With("operation", "scan invitation").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("INVITE_INVALID_ID").With("id", idStr).Wrap(err)
	}
	inv.ID = id

	if invitedBy != nil {
		by, err := ulid.Parse(*invitedBy)
		if err != nil {
			return nil, oops.Code("INVITE_INVALID_INVITER").With("invited_by", *invitedBy).Wrap(err)
		}
		inv.InvitedBy = &by
	}
	return &inv, nil
}

// Compile-time interface check.
var _ invite.Repository = (*Repository)(nil)
