// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package web serves the Taskroster HTTP API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskroster/taskroster/internal/auth"
	"github.com/taskroster/taskroster/internal/invite"
	"github.com/taskroster/taskroster/internal/register"
)

// Registrar runs sign-ups. *register.Workflow satisfies it.
type Registrar interface {
	Register(ctx context.Context, req register.Request) (*register.Outcome, error)
}

// Inviter sends invitations. *invite.Dispatcher satisfies it.
type Inviter interface {
	Invite(ctx context.Context, email string, invitedBy *ulid.ULID) (*invite.Invitation, error)
}

// Sessions opens, resolves and closes sessions. *auth.Authenticator satisfies it.
type Sessions interface {
	Authenticate(ctx context.Context, email, password string, client auth.ClientInfo) (*auth.Session, string, error)
	Resolve(ctx context.Context, token string) (*auth.Identity, error)
	Logout(ctx context.Context, sessionID ulid.ULID) error
}

// HTTPObserver records served requests. *observability.Metrics satisfies it.
type HTTPObserver interface {
	ObserveHTTP(route string, status int, elapsed time.Duration)
}

// Options tune the handler.
type Options struct {
	// SecureCookie marks cookies Secure even on plain HTTP requests, for
	// deployments behind a TLS-terminating proxy.
	SecureCookie bool
	Logger       *slog.Logger
	Observer     HTTPObserver
}

// Handler routes Taskroster requests.
type Handler struct {
	registrar Registrar
	inviter   Inviter
	sessions  Sessions
	secure    bool
	logger    *slog.Logger
	observer  HTTPObserver
	mux       *http.ServeMux
	root      http.Handler
}

// NewHandler creates a Handler.
func NewHandler(registrar Registrar, inviter Inviter, sessions Sessions, opts Options) (*Handler, error) {
	if registrar == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("registrar is required")
	}
	if inviter == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("inviter is required")
	}
	if sessions == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("sessions are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &Handler{
		registrar: registrar,
		inviter:   inviter,
		sessions:  sessions,
		secure:    opts.SecureCookie,
		logger:    opts.Logger,
		observer:  opts.Observer,
		mux:       http.NewServeMux(),
	}
	h.routes()
	h.root = RequestLogger(h.logger, h.observer)(h.mux)
	return h, nil
}

func (h *Handler) routes() {
	authed := RequireAuth(h.sessions, h.logger)

	h.mux.HandleFunc("GET /{$}", h.handleHome)
	h.mux.HandleFunc("POST /register", h.handleRegister)
	h.mux.HandleFunc("POST /login", h.handleLogin)
	h.mux.Handle("POST /logout", authed(http.HandlerFunc(h.handleLogout)))
	h.mux.Handle("POST /invite", authed(http.HandlerFunc(h.handleInvite)))
	h.mux.Handle("GET /dashboard", authed(http.HandlerFunc(h.handleDashboard)))
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// NewServer wraps handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
