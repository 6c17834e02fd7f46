// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package mail

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSender_Send(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, sender.Send(context.Background(), Invitation("novo@email.com")))

	out := buf.String()
	assert.Contains(t, out, "to=novo@email.com")
	assert.Contains(t, out, "mail not sent")
	assert.NotContains(t, out, "shared to-do list", "bodies are not logged")
}

func TestNewLogSender_NilLogger(t *testing.T) {
	assert.NotNil(t, NewLogSender(nil).logger)
}
