// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskroster/taskroster/pkg/errutil"
)

// ClientInfo describes the client a session is opened for.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// Authenticator opens, resolves, and closes user sessions.
type Authenticator struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	ttl      time.Duration
	logger   *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithSessionTTL sets how long new sessions stay valid.
// Non-positive values are ignored.
func WithSessionTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(users UserRepository, sessions SessionRepository, hasher PasswordHasher, opts ...Option) (*Authenticator, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	a := &Authenticator{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		ttl:      DefaultSessionTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// This is NOT a real credential; it will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Login opens a session for an already verified user, such as one that
// has just registered. Returns the session and its plaintext token.
func (a *Authenticator) Login(ctx context.Context, user *User, client ClientInfo) (*Session, string, error) {
	if user == nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").Errorf("user is required")
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user.ID, tokenHash, client.UserAgent, client.IPAddress, time.Now().Add(a.ttl))
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := a.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return session, token, nil
}

// Authenticate verifies an email and password pair and opens a session.
// Unknown emails and wrong passwords produce the same error, and the
// password is always verified so both paths take comparable time.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string, client ClientInfo) (*Session, string, error) {
	user, lookupErr := a.users.GetByEmail(ctx, NormalizeEmail(email))

	targetHash := dummyPasswordHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := a.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !userExists || !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
	}

	if a.hasher.NeedsUpgrade(user.PasswordHash) {
		a.upgradeHash(ctx, user, password)
	}

	return a.Login(ctx, user, client)
}

// upgradeHash re-hashes the password with the current cost.
// Failures are logged; the login proceeds on the old hash.
func (a *Authenticator) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := a.hasher.Hash(password)
	if err != nil {
		errutil.LogErrorContext(ctx, a.logger, "password rehash failed", err)
		return
	}
	if err := a.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		errutil.LogErrorContext(ctx, a.logger, "password upgrade persist failed",
			oops.With("user_id", user.ID.String()).Wrap(err))
		return
	}
	user.PasswordHash = newHash
}

// Resolve checks a session token and returns the user it belongs to.
// Also updates the session's LastSeenAt timestamp.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := a.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("session user no longer exists")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get user by id").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}

	now := time.Now()
	if err := a.sessions.UpdateLastSeen(ctx, session.ID, now); err != nil {
		a.logger.DebugContext(ctx, "session last-seen update failed",
			"session_id", session.ID.String(), "error", err)
	} else {
		session.LastSeenAt = now
	}

	return &Identity{User: user, Session: session}, nil
}

// Logout invalidates a session.
func (a *Authenticator) Logout(ctx context.Context, sessionID ulid.ULID) error {
	err := a.sessions.Delete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}

// PurgeExpired deletes expired sessions and returns how many were removed.
func (a *Authenticator) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := a.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}
