// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package authtest provides in-memory auth repositories for tests that
// exercise several components together without a database.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskroster/taskroster/internal/auth"
)

// Users is an in-memory auth.UserRepository. E-mail uniqueness is
// case-insensitive and checked under the same lock as the insert.
type Users struct {
	mu    sync.Mutex
	byID  map[ulid.ULID]*auth.User
	email map[string]ulid.ULID
}

// NewUsers creates an empty Users store.
func NewUsers() *Users {
	return &Users{byID: map[ulid.ULID]*auth.User{}, email: map[string]ulid.ULID{}}
}

func emailKey(email string) string { return strings.ToLower(email) }

// Create implements auth.UserRepository.
func (u *Users) Create(_ context.Context, user *auth.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := emailKey(user.Email)
	if _, taken := u.email[key]; taken {
		return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrDuplicateEmail)
	}
	stored := *user
	u.byID[user.ID] = &stored
	u.email[key] = user.ID
	return nil
}

// GetByID implements auth.UserRepository.
func (u *Users) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	clone := *user
	return &clone, nil
}

// GetByEmail implements auth.UserRepository.
func (u *Users) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	u.mu.Lock()
	id, ok := u.email[emailKey(email)]
	u.mu.Unlock()
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return u.GetByID(ctx, id)
}

// ExistsByEmail implements auth.UserRepository.
func (u *Users) ExistsByEmail(_ context.Context, email string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.email[emailKey(email)]
	return ok, nil
}

// UpdatePassword implements auth.UserRepository.
func (u *Users) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// Len returns the number of stored users.
func (u *Users) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.byID)
}

// Sessions is an in-memory auth.SessionRepository.
type Sessions struct {
	mu   sync.Mutex
	byID map[ulid.ULID]*auth.Session
}

// NewSessions creates an empty Sessions store.
func NewSessions() *Sessions {
	return &Sessions{byID: map[ulid.ULID]*auth.Session{}}
}

// Create implements auth.SessionRepository.
func (s *Sessions) Create(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.byID[session.ID] = &stored
	return nil
}

// GetByTokenHash implements auth.SessionRepository.
func (s *Sessions) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.byID {
		if session.TokenHash == tokenHash {
			clone := *session
			return &clone, nil
		}
	}
	return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// UpdateLastSeen implements auth.SessionRepository.
func (s *Sessions) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	session.LastSeenAt = lastSeen
	return nil
}

// Delete implements auth.SessionRepository.
func (s *Sessions) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(s.byID, id)
	return nil
}

// DeleteByUser implements auth.SessionRepository.
func (s *Sessions) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.byID {
		if session.UserID == userID {
			delete(s.byID, id)
		}
	}
	return nil
}

// DeleteExpired implements auth.SessionRepository.
func (s *Sessions) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for id, session := range s.byID {
		if session.IsExpiredAt(now) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

var (
	_ auth.UserRepository    = (*Users)(nil)
	_ auth.SessionRepository = (*Sessions)(nil)
)
