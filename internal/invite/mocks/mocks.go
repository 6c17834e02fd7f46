// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package mocks provides testify mocks for the invite interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/taskroster/taskroster/internal/invite"
	"github.com/taskroster/taskroster/internal/mail"
)

// MockRepository is a mock invite.Repository.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a MockRepository whose expectations are
// asserted when the test ends.
func NewMockRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockRepository {
	m := &MockRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create implements invite.Repository.
func (m *MockRepository) Create(ctx context.Context, inv *invite.Invitation) error {
	return m.Called(ctx, inv).Error(0)
}

// ListByEmail implements invite.Repository.
func (m *MockRepository) ListByEmail(ctx context.Context, email string) ([]*invite.Invitation, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invite.Invitation), args.Error(1)
}

// MockSender is a mock mail.Sender.
type MockSender struct {
	mock.Mock
}

// NewMockSender creates a MockSender whose expectations are asserted when
// the test ends.
func NewMockSender(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSender {
	m := &MockSender{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Send implements mail.Sender.
func (m *MockSender) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// MockRecorder is a mock invite.Recorder.
type MockRecorder struct {
	mock.Mock
}

// ObserveInvitation implements invite.Recorder.
func (m *MockRecorder) ObserveInvitation(outcome string) {
	m.Called(outcome)
}

var (
	_ invite.Repository = (*MockRepository)(nil)
	_ mail.Sender       = (*MockSender)(nil)
	_ invite.Recorder   = (*MockRecorder)(nil)
)
