// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/taskroster/taskroster/internal/auth"
	authpostgres "github.com/taskroster/taskroster/internal/auth/postgres"
	"github.com/taskroster/taskroster/internal/config"
	"github.com/taskroster/taskroster/internal/invite"
	invitepostgres "github.com/taskroster/taskroster/internal/invite/postgres"
	"github.com/taskroster/taskroster/internal/mail"
	"github.com/taskroster/taskroster/internal/observability"
	"github.com/taskroster/taskroster/internal/register"
	"github.com/taskroster/taskroster/internal/store"
	"github.com/taskroster/taskroster/internal/web"
	"github.com/taskroster/taskroster/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Serve the registration, login and invitation endpoints, plus
metrics and health probes when a metrics address is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err //nolint:wrapcheck // already coded by config
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, setupLogging(cfg))
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err //nolint:wrapcheck // already coded by store
	}
	defer pool.Close()

	obsServer, err := startObservability(ctx, cancel, cfg.Metrics.Addr, store.ReadinessCheck(pool), logger)
	if err != nil {
		return err
	}
	var metrics *observability.Metrics
	if obsServer != nil {
		metrics = obsServer.Metrics()
	}

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.HashParams())
	if err != nil {
		return err //nolint:wrapcheck // already coded by auth
	}
	users := authpostgres.NewUserRepository(pool)
	sessions := authpostgres.NewSessionRepository(pool)

	authn, err := auth.NewAuthenticator(users, sessions, hasher,
		auth.WithSessionTTL(cfg.Session.TTL),
		auth.WithLogger(logger.With("component", "auth")),
	)
	if err != nil {
		return err //nolint:wrapcheck // already coded by auth
	}

	workflow, err := register.NewWorkflow(users, hasher, authn,
		register.WithRecorder(metrics),
		register.WithLogger(logger.With("component", "register")),
	)
	if err != nil {
		return err //nolint:wrapcheck // already coded by register
	}

	mailer, err := newMailer(cfg, logger.With("component", "mail"))
	if err != nil {
		return err
	}
	dispatcher, err := invite.NewDispatcher(invitepostgres.NewRepository(pool), mailer,
		invite.WithRecorder(metrics),
		invite.WithLogger(logger.With("component", "invite")),
	)
	if err != nil {
		return err //nolint:wrapcheck // already coded by invite
	}

	handler, err := web.NewHandler(workflow, dispatcher, authn, web.Options{
		SecureCookie: cfg.Session.SecureCookie,
		Logger:       logger.With("component", "http"),
		Observer:     metrics,
	})
	if err != nil {
		return err //nolint:wrapcheck // already coded by web
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	srv := web.NewServer(cfg.HTTP.Addr, handler)
	srvErrCh := make(chan error, 1)
	go func() {
		defer close(srvErrCh)
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			srvErrCh <- serveErr
		}
	}()
	go monitorServerErrors(ctx, cancel, srvErrCh, "http", logger)

	go purgeLoop(ctx, authn, cfg.Session.PurgeInterval, metrics, logger.With("component", "sessions"))

	logger.InfoContext(ctx, "taskroster ready",
		"http_addr", listener.Addr().String(),
		"metrics_addr", cfg.Metrics.Addr,
		"mail", mailMode(cfg),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// startObservability starts the metrics and health server and watches it for
// serve errors. An empty addr disables it and yields a nil server.
func startObservability(ctx context.Context, cancel context.CancelFunc, addr string, checker observability.ReadinessChecker, logger *slog.Logger) (*observability.Server, error) {
	if addr == "" {
		return nil, nil
	}
	srv := observability.NewServer(addr, checker, logger.With("component", "observability"))
	errCh, err := srv.Start()
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded by observability
	}
	go monitorServerErrors(ctx, cancel, errCh, "observability", logger)
	return srv, nil
}

// newMailer picks Postmark when a token is configured and the logging
// sender otherwise.
func newMailer(cfg *config.Config, logger *slog.Logger) (mail.Sender, error) {
	if !cfg.MailEnabled() {
		return mail.NewLogSender(logger), nil
	}
	client, err := mail.NewPostmarkClient(cfg.Mail.PostmarkToken, cfg.Mail.From,
		mail.WithMaxRetries(cfg.Mail.MaxRetries),
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded by mail
	}
	return client, nil
}

func mailMode(cfg *config.Config) string {
	if cfg.MailEnabled() {
		return "postmark"
	}
	return "log"
}

// sessionPurger removes expired sessions. *auth.Authenticator satisfies it.
type sessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// purgeLoop removes expired sessions every interval until ctx ends.
// A zero interval disables it.
func purgeLoop(ctx context.Context, purger sessionPurger, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.PurgeExpired(ctx)
			if err != nil {
				errutil.LogErrorContext(ctx, logger, "session purge failed", err)
				continue
			}
			metrics.ObserveSessionsPurged(n)
			if n > 0 {
				logger.InfoContext(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}

// monitorServerErrors cancels ctx when a server reports a serve error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
