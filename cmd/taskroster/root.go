// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taskroster/taskroster/internal/config"
	"github.com/taskroster/taskroster/internal/logging"
	"github.com/taskroster/taskroster/internal/xdg"
)

// NewRootCmd creates the root command for the Taskroster CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskroster",
		Short: "Taskroster - shared to-do lists for teams",
		Long: `Taskroster registers users, signs them in, and lets them invite
others to the platform by e-mail.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads the layered configuration for cmd. Without --config the
// XDG config file is used when present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag is registered by NewRootCmd
	}
	if path == "" {
		if path, err = xdg.ConfigFile(); err != nil {
			return nil, err //nolint:wrapcheck // already coded by xdg
		}
	}
	return config.Load(path, cmd.Flags())
}

// setupLogging installs the process logger described by cfg.
func setupLogging(cfg *config.Config) *slog.Logger {
	return logging.SetDefault(logging.Options{
		Service: "taskroster",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
}
