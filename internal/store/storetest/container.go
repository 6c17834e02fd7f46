// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

//go:build integration

// Package storetest starts a migrated PostgreSQL testcontainer for
// integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taskroster/taskroster/internal/store"
)

// Start runs postgres:16-alpine, applies every migration, and returns a
// pool plus a cleanup func that closes the pool and terminates the container.
func Start(ctx context.Context) (*pgxpool.Pool, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("taskroster_test"),
		postgres.WithUsername("taskroster"),
		postgres.WithPassword("taskroster"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, oops.Code("TEST_CONTAINER_FAILED").Wrap(err)
	}
	terminate := func() { _ = container.Terminate(ctx) } //nolint:errcheck // test teardown

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, oops.Code("TEST_CONTAINER_FAILED").With("operation", "connection string").Wrap(err)
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	upErr := migrator.Up()
	_ = migrator.Close() //nolint:errcheck // migration result takes precedence
	if upErr != nil {
		terminate()
		return nil, nil, upErr
	}

	pool, err := store.Open(ctx, connStr)
	if err != nil {
		terminate()
		return nil, nil, err
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}
