// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskroster/taskroster/internal/store"
	"github.com/taskroster/taskroster/pkg/errutil"
)

type fakeMigrator struct {
	upErr     error
	downErr   error
	stepsErr  error
	forceErr  error
	status    *store.Status
	statusErr error
	closeErr  error

	ups, downs int
	steps      []int
	forced     []int
	closed     bool
}

func (f *fakeMigrator) Up() error {
	f.ups++
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.downs++
	return f.downErr
}

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return f.stepsErr
}

func (f *fakeMigrator) Force(version int) error {
	f.forced = append(f.forced, version)
	return f.forceErr
}

func (f *fakeMigrator) Status() (*store.Status, error) {
	return f.status, f.statusErr
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return f.closeErr
}

// useFakeMigrator swaps migratorFactory for the duration of the test.
func useFakeMigrator(t *testing.T, f *fakeMigrator) *string {
	t.Helper()
	var gotURL string
	orig := migratorFactory
	migratorFactory = func(databaseURL string) (migrator, error) {
		gotURL = databaseURL
		return f, nil
	}
	t.Cleanup(func() { migratorFactory = orig })
	return &gotURL
}

func runMigrate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append([]string{"migrate"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateCommand_Help(t *testing.T) {
	out, err := runMigrate(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"up", "down", "force", "status"} {
		assert.Contains(t, out, sub)
	}
}

func TestMigrateCommand_NoDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	f := &fakeMigrator{}
	useFakeMigrator(t, f)

	_, err := runMigrate(t, "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "database.url")
	assert.Zero(t, f.ups, "migrator must not run without a database url")
}

func TestMigrateUp(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	f := &fakeMigrator{}
	gotURL := useFakeMigrator(t, f)

	out, err := runMigrate(t, "up")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", *gotURL)
	assert.Equal(t, 1, f.ups)
	assert.True(t, f.closed)
	assert.Contains(t, out, "Migrations applied")
}

func TestMigrateUp_FlagSuppliesDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	f := &fakeMigrator{}
	gotURL := useFakeMigrator(t, f)

	_, err := runMigrate(t, "up", "--database-url", "postgres://flag/db")
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/db", *gotURL)
}

func TestMigrateUp_Failure(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	f := &fakeMigrator{upErr: errors.New("dirty database")}
	useFakeMigrator(t, f)

	_, err := runMigrate(t, "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
	errutil.AssertErrorContext(t, err, "direction", "up")
	assert.True(t, f.closed, "migrator is closed even on failure")
}

func TestMigrateDown(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	f := &fakeMigrator{}
	useFakeMigrator(t, f)

	out, err := runMigrate(t, "down")
	require.NoError(t, err)
	assert.Equal(t, 1, f.downs)
	assert.Contains(t, out, "Migrations rolled back")
}

func TestMigrateDown_Steps(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	f := &fakeMigrator{}
	useFakeMigrator(t, f)

	_, err := runMigrate(t, "down", "--steps", "2")
	require.NoError(t, err)
	assert.Zero(t, f.downs)
	assert.Equal(t, []int{-2}, f.steps)
}

func TestMigrateDown_NegativeSteps(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	f := &fakeMigrator{}
	useFakeMigrator(t, f)

	_, err := runMigrate(t, "down", "--steps=-1")
	errutil.AssertErrorCode(t, err, "INVALID_STEPS")
	assert.Empty(t, f.steps)
}

func TestMigrateForce(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	f := &fakeMigrator{}
	useFakeMigrator(t, f)

	out, err := runMigrate(t, "force", "3")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, f.forced)
	assert.Contains(t, out, "Forced version 3")
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErrCode string
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero", input: "0", wantVersion: 0},
		{name: "nil version", input: "-1", wantVersion: -1},
		{name: "surrounding whitespace", input: "  42 ", wantVersion: 42},
		{name: "below nil version", input: "-2", wantErrCode: "INVALID_VERSION"},
		{name: "non-numeric", input: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "trailing garbage", input: "3abc", wantErrCode: "INVALID_VERSION"},
		{name: "empty", input: "", wantErrCode: "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErrCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, got)
		})
	}
}

func TestMigrate_CloseErrorSurfaces(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	f := &fakeMigrator{closeErr: errors.New("close failed")}
	useFakeMigrator(t, f)

	_, err := runMigrate(t, "down")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close failed")
}

func TestMigrateStatus(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	f := &fakeMigrator{status: &store.Status{
		Version: 2,
		Dirty:   true,
		Applied: []store.Migration{
			{Version: 1, Name: "000001_create_users"},
			{Version: 2, Name: "000002_create_sessions"},
		},
		Pending: []store.Migration{
			{Version: 3, Name: "000003_create_invites"},
		},
	}}
	useFakeMigrator(t, f)

	out, err := runMigrate(t, "status")
	require.NoError(t, err)

	assert.Equal(t, "Version: 2 (dirty)\n"+
		"  [x] 000001_create_users\n"+
		"  [x] 000002_create_sessions\n"+
		"  [ ] 000003_create_invites\n", out)
}
