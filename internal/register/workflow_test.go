// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package register_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskroster/taskroster/internal/auth"
	"github.com/taskroster/taskroster/internal/auth/authtest"
	"github.com/taskroster/taskroster/internal/auth/mocks"
	"github.com/taskroster/taskroster/internal/register"
	"github.com/taskroster/taskroster/internal/validation"
	"github.com/taskroster/taskroster/pkg/errutil"
)

var cheapParams = auth.Argon2Params{Time: 1, Memory: 64, Threads: 1}

var client = auth.ClientInfo{UserAgent: "Mozilla/5.0", IPAddress: "203.0.113.7"}

func rafael() validation.Input {
	return validation.Input{
		"name":               "Rafael Lunardelli",
		"email":              "pinguim@dolaravel.com",
		"email_confirmation": "pinguim@dolaravel.com",
		"password":           "uma senha Qualquer",
	}
}

type stack struct {
	users    *authtest.Users
	sessions *authtest.Sessions
	hasher   *auth.Argon2idHasher
	authn    *auth.Authenticator
	workflow *register.Workflow
	recorder *countingRecorder
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) ObserveRegistration(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[outcome]++
}

func newStack(t *testing.T) *stack {
	t.Helper()
	s := &stack{
		users:    authtest.NewUsers(),
		sessions: authtest.NewSessions(),
		recorder: &countingRecorder{},
	}
	var err error
	s.hasher, err = auth.NewArgon2idHasherWithParams(cheapParams)
	require.NoError(t, err)
	s.authn, err = auth.NewAuthenticator(s.users, s.sessions, s.hasher)
	require.NoError(t, err)
	s.workflow, err = register.NewWorkflow(s.users, s.hasher, s.authn, register.WithRecorder(s.recorder))
	require.NoError(t, err)
	return s
}

func TestRegister_EndToEnd(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	out, err := s.workflow.Register(ctx, register.Request{Input: rafael(), Client: client})
	require.NoError(t, err)
	require.True(t, out.Completed())

	assert.Equal(t, register.RedirectDashboard, out.Redirect)
	assert.Empty(t, out.Errors)
	assert.Equal(t, []register.State{
		register.StateReceived,
		register.StateValidating,
		register.StateValidated,
		register.StateHashing,
		register.StatePersisting,
		register.StatePersisted,
		register.StateAuthenticating,
		register.StateCompleted,
	}, out.Path)

	// stored user carries a hash, never the plaintext
	stored, err := s.users.GetByEmail(ctx, "pinguim@dolaravel.com")
	require.NoError(t, err)
	assert.Equal(t, "Rafael Lunardelli", stored.Name)
	assert.NotEqual(t, "uma senha Qualquer", stored.PasswordHash)
	ok, err := s.hasher.Verify("uma senha Qualquer", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	// the returned token resolves to the new user
	require.NotEmpty(t, out.Token)
	identity, err := s.authn.Resolve(ctx, out.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, identity.User.ID)
	assert.Equal(t, out.Session.ID, identity.Session.ID)
	assert.Equal(t, client.UserAgent, identity.Session.UserAgent)

	assert.Equal(t, 1, s.recorder.counts[string(register.StateCompleted)])
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(validation.Input)
		field  string
		rule   string
	}{
		{"missing name", func(in validation.Input) { delete(in, "name") }, "name", validation.CodeRequired},
		{"long name", func(in validation.Input) { in["name"] = strings.Repeat("á", 256) }, "name", validation.CodeMax},
		{"invalid utf-8 name", func(in validation.Input) { in["name"] = "Ra\xff\xfeel" }, "name", validation.CodeString},
		{"bad email", func(in validation.Input) { in["email"] = "pinguim"; in["email_confirmation"] = "pinguim" }, "email", validation.CodeEmail},
		{"unconfirmed email", func(in validation.Input) { delete(in, "email_confirmation") }, "email", validation.CodeConfirmed},
		{"mismatched confirmation", func(in validation.Input) { in["email_confirmation"] = "outro@dolaravel.com" }, "email", validation.CodeConfirmed},
		{"short password", func(in validation.Input) { in["password"] = "Ab1" }, "password", validation.CodeMin},
		{"lowercase password", func(in validation.Input) { in["password"] = "uma senha qualquer" }, "password", validation.CodeMixedCase},
		{"missing password", func(in validation.Input) { in["password"] = "" }, "password", validation.CodeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStack(t)
			in := rafael()
			tt.mutate(in)

			out, err := s.workflow.Register(context.Background(), register.Request{Input: in, Client: client})
			require.NoError(t, err)
			assert.Equal(t, register.StateRejected, out.State)
			assert.False(t, out.Completed())
			assert.True(t, out.Errors.Has(tt.field, tt.rule), "got %v", out.Errors)
			assert.Nil(t, out.User)
			assert.Empty(t, out.Token)
			assert.Equal(t, 0, s.users.Len(), "nothing stored")
			assert.Equal(t, 0, s.sessions.Len(), "no session opened")
		})
	}
}

func TestRegister_ReportsEveryFailingField(t *testing.T) {
	s := newStack(t)

	out, err := s.workflow.Register(context.Background(), register.Request{Input: validation.Input{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "name", "password"}, out.Errors.Fields())
}

func TestRegister_TakenEmailFailsUniqueRule(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.workflow.Register(ctx, register.Request{Input: rafael(), Client: client})
	require.NoError(t, err)

	again := rafael()
	again["email"] = "PINGUIM@dolaravel.com"
	again["email_confirmation"] = "PINGUIM@dolaravel.com"
	out, err := s.workflow.Register(ctx, register.Request{Input: again, Client: client})
	require.NoError(t, err)
	assert.Equal(t, register.StateRejected, out.State)
	assert.True(t, out.Errors.Has("email", validation.CodeUnique))
	assert.Equal(t, 1, s.users.Len())
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	s := newStack(t)
	const attempts = 8

	outcomes := make([]*register.Outcome, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.workflow.Register(context.Background(), register.Request{Input: rafael(), Client: client})
			assert.NoError(t, err)
			outcomes[i] = out
		}()
	}
	wg.Wait()

	completed := 0
	for _, out := range outcomes {
		require.NotNil(t, out)
		if out.Completed() {
			completed++
			continue
		}
		assert.Contains(t, []register.State{register.StateRejected, register.StatePersistFailed}, out.State)
		assert.True(t, out.Errors.Has("email", validation.CodeUnique))
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, s.users.Len())
}

type workflowMocks struct {
	users    *mocks.MockUserRepository
	hasher   *mocks.MockPasswordHasher
	sessions *mockOpener
	workflow *register.Workflow
}

type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) Login(ctx context.Context, user *auth.User, c auth.ClientInfo) (*auth.Session, string, error) {
	args := m.Called(ctx, user, c)
	session, _ := args.Get(0).(*auth.Session)
	return session, args.String(1), args.Error(2)
}

func newWorkflowMocks(t *testing.T) *workflowMocks {
	t.Helper()
	m := &workflowMocks{
		users:    mocks.NewMockUserRepository(t),
		hasher:   mocks.NewMockPasswordHasher(t),
		sessions: &mockOpener{},
	}
	t.Cleanup(func() { m.sessions.AssertExpectations(t) })
	w, err := register.NewWorkflow(m.users, m.hasher, m.sessions)
	require.NoError(t, err)
	m.workflow = w
	return m
}

func TestRegister_DuplicateAtPersistIsAFieldError(t *testing.T) {
	m := newWorkflowMocks(t)

	m.users.On("ExistsByEmail", mock.Anything, "pinguim@dolaravel.com").Return(false, nil).Once()
	m.hasher.On("Hash", "uma senha Qualquer").Return("$argon2id$hash", nil).Once()
	m.users.On("Create", mock.Anything, mock.Anything).
		Return(errors.Join(errors.New("insert"), auth.ErrDuplicateEmail)).Once()

	out, err := m.workflow.Register(context.Background(), register.Request{Input: rafael()})
	require.NoError(t, err)
	assert.Equal(t, register.StatePersistFailed, out.State)
	assert.True(t, out.Errors.Has("email", validation.CodeUnique))
	assert.Equal(t, "The email has already been taken.", out.Errors["email"][0].Message)
	assert.Nil(t, out.User)
}

func TestRegister_FatalErrors(t *testing.T) {
	t.Run("uniqueness lookup fails", func(t *testing.T) {
		m := newWorkflowMocks(t)
		m.users.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, errors.New("db down")).Once()

		out, err := m.workflow.Register(context.Background(), register.Request{Input: rafael()})
		require.Error(t, err)
		assert.Equal(t, register.StateValidating, out.State)
		errutil.AssertErrorContext(t, err, "field", "email")
	})

	t.Run("hash fails", func(t *testing.T) {
		m := newWorkflowMocks(t)
		m.users.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil).Once()
		m.hasher.On("Hash", mock.Anything).Return("", errors.New("entropy exhausted")).Once()

		out, err := m.workflow.Register(context.Background(), register.Request{Input: rafael()})
		require.Error(t, err)
		assert.Equal(t, register.StateHashing, out.State)
		errutil.AssertErrorCode(t, err, "REGISTER_HASH_FAILED")
	})

	t.Run("persist fails", func(t *testing.T) {
		m := newWorkflowMocks(t)
		m.users.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil).Once()
		m.hasher.On("Hash", mock.Anything).Return("$argon2id$hash", nil).Once()
		m.users.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

		out, err := m.workflow.Register(context.Background(), register.Request{Input: rafael()})
		require.Error(t, err)
		assert.Equal(t, register.StatePersisting, out.State)
		errutil.AssertErrorCode(t, err, "REGISTER_PERSIST_FAILED")
		errutil.AssertErrorContext(t, err, "email", "pinguim@dolaravel.com")
	})

	t.Run("session fails", func(t *testing.T) {
		m := newWorkflowMocks(t)
		m.users.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil).Once()
		m.hasher.On("Hash", mock.Anything).Return("$argon2id$hash", nil).Once()
		m.users.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		m.sessions.On("Login", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, "", errors.New("sessions table locked")).Once()

		out, err := m.workflow.Register(context.Background(), register.Request{Input: rafael()})
		require.Error(t, err)
		assert.Equal(t, register.StateAuthenticating, out.State)
		require.NotNil(t, out.User, "user stays stored")
		errutil.AssertErrorCode(t, err, "REGISTER_LOGIN_FAILED")
	})
}

func TestNewWorkflow_RequiresDependencies(t *testing.T) {
	hasher := auth.NewArgon2idHasher()
	users := authtest.NewUsers()
	authn, err := auth.NewAuthenticator(users, authtest.NewSessions(), hasher)
	require.NoError(t, err)

	_, err = register.NewWorkflow(nil, hasher, authn)
	errutil.AssertErrorCode(t, err, "REGISTER_INVALID_CONFIG")
	_, err = register.NewWorkflow(users, nil, authn)
	errutil.AssertErrorCode(t, err, "REGISTER_INVALID_CONFIG")
	_, err = register.NewWorkflow(users, hasher, nil)
	errutil.AssertErrorCode(t, err, "REGISTER_INVALID_CONFIG")
}
