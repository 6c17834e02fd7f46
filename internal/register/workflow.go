// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package register turns a sign-up form into a stored user with an open
// session.
package register

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/taskroster/taskroster/internal/auth"
	"github.com/taskroster/taskroster/internal/validation"
)

var tracer = otel.Tracer("taskroster/register")

// State is a step of a registration.
type State string

// Registration steps. Rejected, PersistFailed and Completed are terminal.
const (
	StateReceived       State = "received"
	StateValidating     State = "validating"
	StateRejected       State = "rejected"
	StateValidated      State = "validated"
	StateHashing        State = "hashing"
	StatePersisting     State = "persisting"
	StatePersistFailed  State = "persist_failed"
	StatePersisted      State = "persisted"
	StateAuthenticating State = "authenticating"
	StateCompleted      State = "completed"
)

// RedirectDashboard is where a registered user is sent next.
const RedirectDashboard = "dashboard"

// Form fields read by the workflow.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// SessionOpener opens a session for a user. *auth.Authenticator satisfies it.
type SessionOpener interface {
	Login(ctx context.Context, user *auth.User, client auth.ClientInfo) (*auth.Session, string, error)
}

// Recorder counts terminal states. *observability.Metrics satisfies it.
type Recorder interface {
	ObserveRegistration(outcome string)
}

// Request is one sign-up attempt.
type Request struct {
	Input  validation.Input
	Client auth.ClientInfo
}

// Outcome is the result of a registration that did not fail outright.
type Outcome struct {
	State    State
	Errors   validation.Errors // set when State is Rejected or PersistFailed
	User     *auth.User
	Session  *auth.Session
	Token    string // plaintext session token for the client
	Redirect string
	Path     []State // every state entered, in order
}

// Completed reports whether the user was created and logged in.
func (o *Outcome) Completed() bool {
	return o != nil && o.State == StateCompleted
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Path = append(o.Path, s)
}

// Rules returns the sign-up rules. Uniqueness of the e-mail is checked
// against checker.
func Rules(checker validation.ExistenceChecker) validation.Rules {
	return validation.Rules{
		FieldName:     {validation.Required, validation.String, validation.MaxLength(auth.MaxNameLength)},
		FieldEmail:    {validation.Required, validation.Email, validation.Unique(checker, "email"), validation.Confirmed},
		FieldPassword: {validation.Required, validation.String, validation.MinLength(8), validation.MixedCase},
	}
}

// Workflow registers users.
type Workflow struct {
	users    auth.UserRepository
	hasher   auth.PasswordHasher
	sessions SessionOpener
	rules    validation.Rules
	unique   validation.Rule
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithRecorder sets where terminal states are counted.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) { w.recorder = r }
}

// WithLogger sets the workflow's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorkflow creates a Workflow.
func NewWorkflow(users auth.UserRepository, hasher auth.PasswordHasher, sessions SessionOpener, opts ...Option) (*Workflow, error) {
	if users == nil {
		return nil, oops.Code("REGISTER_INVALID_CONFIG").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("REGISTER_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Code("REGISTER_INVALID_CONFIG").Errorf("session opener is required")
	}
	w := &Workflow{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		rules:    Rules(emailIndex{users: users}),
		unique:   validation.Unique(emailIndex{users: users}, "email"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Register validates the request, stores the user and opens a session.
//
// Invalid input ends in StateRejected and a taken e-mail in
// StatePersistFailed; both are reported through Outcome.Errors with a nil
// error. Lookup, hashing, storage and session failures are returned as
// errors and leave nothing half-done except a stored user when only the
// session could not be opened.
func (w *Workflow) Register(ctx context.Context, req Request) (out *Outcome, err error) {
	ctx, span := tracer.Start(ctx, "register.user")
	out = &Outcome{}
	defer func() {
		span.SetAttributes(attribute.String("register.state", string(out.State)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			w.observe("error")
		} else {
			w.observe(string(out.State))
		}
		span.End()
	}()

	out.enter(StateReceived)
	out.enter(StateValidating)
	errs, err := validation.Validate(ctx, req.Input, w.rules)
	if err != nil {
		return out, oops.Code("REGISTER_VALIDATION_FAILED").
			With("state", string(out.State)).
			Wrap(err)
	}
	if len(errs) > 0 {
		out.enter(StateRejected)
		out.Errors = errs
		w.logger.DebugContext(ctx, "registration rejected", "fields", errs.Fields())
		return out, nil
	}
	out.enter(StateValidated)

	out.enter(StateHashing)
	hash, err := w.hasher.Hash(req.Input.String(FieldPassword))
	if err != nil {
		return out, oops.Code("REGISTER_HASH_FAILED").
			With("state", string(out.State)).
			Wrap(err)
	}

	user, err := auth.NewUser(req.Input.String(FieldName), req.Input.String(FieldEmail), hash)
	if err != nil {
		return out, oops.Code("REGISTER_INVALID_USER").
			With("state", string(out.State)).
			Wrap(err)
	}

	out.enter(StatePersisting)
	if err := w.users.Create(ctx, user); err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			// lost a race with another sign-up after validation passed
			out.enter(StatePersistFailed)
			out.Errors = validation.Errors{}
			out.Errors.Fail(FieldEmail, w.unique)
			return out, nil
		}
		return out, oops.Code("REGISTER_PERSIST_FAILED").
			With("state", string(out.State)).
			With("email", user.Email).
			Wrap(err)
	}
	out.enter(StatePersisted)
	out.User = user
	span.SetAttributes(attribute.String("register.user_id", user.ID.String()))

	out.enter(StateAuthenticating)
	session, token, err := w.sessions.Login(ctx, user, req.Client)
	if err != nil {
		return out, oops.Code("REGISTER_LOGIN_FAILED").
			With("state", string(out.State)).
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	out.Session = session
	out.Token = token
	out.Redirect = RedirectDashboard
	out.enter(StateCompleted)

	w.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return out, nil
}

func (w *Workflow) observe(outcome string) {
	if w.recorder != nil {
		w.recorder.ObserveRegistration(outcome)
	}
}

// emailIndex answers uniqueness lookups from the users table.
type emailIndex struct {
	users auth.UserRepository
}

func (e emailIndex) Exists(ctx context.Context, column, value string) (bool, error) {
	if column != "email" {
		return false, oops.Code("REGISTER_UNKNOWN_COLUMN").
			With("column", column).
			Errorf("users can only be looked up by email")
	}
	exists, err := e.users.ExistsByEmail(ctx, auth.NormalizeEmail(value))
	if err != nil {
		return false, err //nolint:wrapcheck // validation adds field context
	}
	return exists, nil
}
