// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskroster/taskroster/internal/mail"
	"github.com/taskroster/taskroster/internal/validation"
	"github.com/taskroster/taskroster/pkg/errutil"
)

var tracer = otel.Tracer("taskroster/invite")

// Sentinels matched with errors.Is on the error returned by Invite.
var (
	ErrMailFailed    = errors.New("invitation mail failed")
	ErrPersistFailed = errors.New("invitation record failed")
)

// Outcome labels reported to the Recorder.
const (
	OutcomeSent          = "sent"
	OutcomeMailFailed    = "mail_failed"
	OutcomePersistFailed = "persist_failed"
	OutcomeFailed        = "failed"
)

// Recorder counts invitation outcomes. *observability.Metrics satisfies it.
type Recorder interface {
	ObserveInvitation(outcome string)
}

// Rules validates the invite form.
func Rules() validation.Rules {
	return validation.Rules{
		"email": {validation.Required, validation.String, validation.MaxLength(255), validation.Email},
	}
}

// Dispatcher mails invitations and records them.
type Dispatcher struct {
	repo     Repository
	sender   mail.Sender
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder sets where outcomes are counted.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(repo Repository, sender mail.Sender, opts ...Option) (*Dispatcher, error) {
	if repo == nil {
		return nil, oops.Code("INVITE_INVALID_CONFIG").Errorf("invitation repository is required")
	}
	if sender == nil {
		return nil, oops.Code("INVITE_INVALID_CONFIG").Errorf("mail sender is required")
	}
	d := &Dispatcher{repo: repo, sender: sender, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Invite mails the invitation to email and records it. Both steps are
// always attempted and neither is undone when the other fails.
//
// The returned invitation is non-nil whenever the record was stored, even
// if the mail failed. A failed step is reported as ErrMailFailed or
// ErrPersistFailed (both joined when neither step succeeded).
func (d *Dispatcher) Invite(ctx context.Context, email string, invitedBy *ulid.ULID) (inv *Invitation, err error) {
	ctx, span := tracer.Start(ctx, "invite.dispatch",
		trace.WithAttributes(attribute.String("invite.email", email)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	candidate, err := NewInvitation(email, invitedBy)
	if err != nil {
		d.observe(OutcomeFailed)
		return nil, err
	}
	if invitedBy != nil {
		span.SetAttributes(attribute.String("invite.invited_by", invitedBy.String()))
	}

	var mailErr, persistErr error
	if sendErr := d.sender.Send(ctx, mail.Invitation(candidate.Email)); sendErr != nil {
		mailErr = oops.Code("INVITE_MAIL_FAILED").
			With("email", candidate.Email).
			Wrap(fmt.Errorf("%w: %w", ErrMailFailed, sendErr))
		errutil.LogErrorContext(ctx, d.logger, "invitation mail failed", mailErr)
	}

	if createErr := d.repo.Create(ctx, candidate); createErr != nil {
		persistErr = oops.Code("INVITE_PERSIST_FAILED").
			With("email", candidate.Email).
			With("invitation_id", candidate.ID.String()).
			Wrap(fmt.Errorf("%w: %w", ErrPersistFailed, createErr))
		errutil.LogErrorContext(ctx, d.logger, "invitation record failed", persistErr)
	} else {
		inv = candidate
		span.SetAttributes(attribute.String("invite.id", candidate.ID.String()))
	}

	switch {
	case mailErr != nil && persistErr != nil:
		d.observe(OutcomeFailed)
		return nil, errors.Join(mailErr, persistErr)
	case mailErr != nil:
		d.observe(OutcomeMailFailed)
		return inv, mailErr
	case persistErr != nil:
		d.observe(OutcomePersistFailed)
		return nil, persistErr
	}

	d.observe(OutcomeSent)
	d.logger.InfoContext(ctx, "invitation sent",
		"invitation_id", inv.ID.String(),
		"email", inv.Email,
	)
	return inv, nil
}

func (d *Dispatcher) observe(outcome string) {
	if d.recorder != nil {
		d.recorder.ObserveInvitation(outcome)
	}
}
