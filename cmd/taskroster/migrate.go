// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/taskroster/taskroster/internal/store"
)

// migrator is the part of *store.Migrator the commands use.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// migratorFactory opens a migrator; replaced in tests.
var migratorFactory = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back, or inspect the embedded database migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("direction", "up").Wrap(err)
				}
				cmd.Println("Migrations applied")
				return nil
			})
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  `Roll back every migration, or only the last --steps of them.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, err := cmd.Flags().GetInt("steps")
			if err != nil {
				return err //nolint:wrapcheck // flag is registered below
			}
			if steps < 0 {
				return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("steps must not be negative")
			}
			return withMigrator(cmd, func(m migrator) error {
				run := m.Down
				if steps > 0 {
					run = func() error { return m.Steps(-steps) }
				}
				if err := run(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("direction", "down").Wrap(err)
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().Int("steps", 0, "number of migrations to roll back (0 means all)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark a version as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, func(m migrator) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("direction", "force").Wrap(err)
				}
				cmd.Printf("Forced version %d\n", version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				status, err := m.Status()
				if err != nil {
					return err //nolint:wrapcheck // already coded by store
				}
				printStatus(cmd, status)
				return nil
			})
		},
	})

	return cmd
}

func parseForceVersion(arg string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("version", arg).Wrap(err)
	}
	if version < -1 {
		return 0, oops.Code("INVALID_VERSION").With("version", arg).Errorf("version must be -1 or greater")
	}
	return version, nil
}

func withMigrator(cmd *cobra.Command, fn func(migrator) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err //nolint:wrapcheck // already coded by config
	}

	m, err := migratorFactory(cfg.Database.URL)
	if err != nil {
		return err //nolint:wrapcheck // already coded by store
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func printStatus(cmd *cobra.Command, s *store.Status) {
	dirty := ""
	if s.Dirty {
		dirty = " (dirty)"
	}
	cmd.Printf("Version: %d%s\n", s.Version, dirty)
	for _, m := range s.Applied {
		cmd.Printf("  [x] %s\n", m.Name)
	}
	for _, m := range s.Pending {
		cmd.Printf("  [ ] %s\n", m.Name)
	}
}
