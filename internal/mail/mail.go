// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package mail sends transactional email.
package mail

import (
	"context"
	"log/slog"
)

// Message is a single outgoing email.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Invitation subject and bodies. Only the recipient varies between sends.
const (
	invitationSubject = "You're invited to Taskroster"
	invitationText    = "Hello!\n\nYou have been invited to join Taskroster, a shared to-do list.\n" +
		"Create your account to start receiving tasks.\n\nSee you there,\nThe Taskroster team"
	invitationHTML = `<p>Hello!</p><p>You have been invited to join Taskroster, a shared to-do list.</p>` +
		`<p>Create your account to start receiving tasks.</p><p>See you there,<br>The Taskroster team</p>`
)

// Invitation builds the fixed invitation message addressed to to.
func Invitation(to string) Message {
	return Message{
		To:       to,
		Subject:  invitationSubject,
		TextBody: invitationText,
		HTMLBody: invitationHTML,
	}
}

// LogSender writes messages to a logger instead of delivering them.
// serve falls back to it when no Postmark token is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail not sent, no transport configured",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

var (
	_ Sender = (*LogSender)(nil)
	_ Sender = (*PostmarkClient)(nil)
)
