// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package config loads Taskroster settings.
//
// Values are layered, later layers winning: built-in defaults, the YAML
// file named by --config, command-line flags the user actually set, and
// finally environment variables.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/taskroster/taskroster/internal/auth"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
	Hash     HashConfig     `koanf:"hash"`
}

// HTTPConfig configures the public listener.
type HTTPConfig struct {
	Addr string `koanf:"addr" env:"TASKROSTER_HTTP_ADDR"`
}

// MetricsConfig configures the metrics and health listener.
type MetricsConfig struct {
	Addr string `koanf:"addr" env:"TASKROSTER_METRICS_ADDR"` // empty disables
}

// DatabaseConfig locates PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url" env:"DATABASE_URL"`
}

// SessionConfig controls login sessions.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl" env:"TASKROSTER_SESSION_TTL"`
	SecureCookie  bool          `koanf:"secure_cookie" env:"TASKROSTER_SECURE_COOKIE"`
	PurgeInterval time.Duration `koanf:"purge_interval" env:"TASKROSTER_SESSION_PURGE_INTERVAL"`
}

// MailConfig configures outgoing mail. Without a Postmark token mail is
// logged instead of sent.
type MailConfig struct {
	From          string `koanf:"from" env:"TASKROSTER_MAIL_FROM"`
	PostmarkToken string `koanf:"postmark_token" env:"POSTMARK_SERVER_TOKEN"`
	MaxRetries    uint64 `koanf:"max_retries" env:"TASKROSTER_MAIL_MAX_RETRIES"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" env:"TASKROSTER_LOG_FORMAT"`
	Level  string `koanf:"level" env:"TASKROSTER_LOG_LEVEL"`
}

// HashConfig is the argon2id cost for new password hashes.
type HashConfig struct {
	Time    uint32 `koanf:"time" env:"TASKROSTER_HASH_TIME"`
	Memory  uint32 `koanf:"memory" env:"TASKROSTER_HASH_MEMORY"`
	Threads uint8  `koanf:"threads" env:"TASKROSTER_HASH_THREADS"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	params := auth.DefaultArgon2Params()
	return Config{
		HTTP:     HTTPConfig{Addr: "127.0.0.1:8080"},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{},
		Session: SessionConfig{
			TTL:           auth.DefaultSessionTTL,
			SecureCookie:  false,
			PurgeInterval: time.Hour,
		},
		Mail: MailConfig{From: "Taskroster <no-reply@taskroster.local>", MaxRetries: 3},
		Log:  LogConfig{Format: "json", Level: "info"},
		Hash: HashConfig{Time: params.Time, Memory: params.Memory, Threads: params.Threads},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"http-addr":              "http.addr",
	"metrics-addr":           "metrics.addr",
	"database-url":           "database.url",
	"session-ttl":            "session.ttl",
	"secure-cookie":          "session.secure_cookie",
	"session-purge-interval": "session.purge_interval",
	"mail-from":              "mail.from",
	"mail-max-retries":       "mail.max_retries",
	"log-format":             "log.format",
	"log-level":              "log.level",
}

// RegisterFlags adds the configuration flags to fs.
// Secrets such as the Postmark token are only read from the file or the
// environment.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("http-addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", d.Database.URL, "PostgreSQL connection URL")
	fs.Duration("session-ttl", d.Session.TTL, "session lifetime")
	fs.Bool("secure-cookie", d.Session.SecureCookie, "mark the session cookie Secure")
	fs.Duration("session-purge-interval", d.Session.PurgeInterval, "how often expired sessions are removed (0 = never)")
	fs.String("mail-from", d.Mail.From, "sender address for outgoing mail")
	fs.Uint64("mail-max-retries", d.Mail.MaxRetries, "retries for transient mail failures")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// Load builds the configuration. path may be empty to skip the file and
// flags may be nil to skip flag parsing.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := setDefaults(k); err != nil {
		return nil, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "flags").
				Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) error {
	d := Defaults()
	values := map[string]any{
		"http.addr":              d.HTTP.Addr,
		"metrics.addr":           d.Metrics.Addr,
		"database.url":           d.Database.URL,
		"session.ttl":            d.Session.TTL,
		"session.secure_cookie":  d.Session.SecureCookie,
		"session.purge_interval": d.Session.PurgeInterval,
		"mail.from":              d.Mail.From,
		"mail.postmark_token":    d.Mail.PostmarkToken,
		"mail.max_retries":       d.Mail.MaxRetries,
		"log.format":             d.Log.Format,
		"log.level":              d.Log.Level,
		"hash.time":              d.Hash.Time,
		"hash.memory":            d.Hash.Memory,
		"hash.threads":           d.Hash.Threads,
	}
	for key, v := range values {
		if err := k.Set(key, v); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}
	return nil
}

// HashParams returns the configured argon2id cost.
func (c *Config) HashParams() auth.Argon2Params {
	return auth.Argon2Params{Time: c.Hash.Time, Memory: c.Hash.Memory, Threads: c.Hash.Threads}
}

// MailEnabled reports whether mail goes out through Postmark.
func (c *Config) MailEnabled() bool {
	return c.Mail.PostmarkToken != ""
}

// Validate checks the configuration needed to serve traffic.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http.addr").Errorf("http address is required")
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.ttl").
			Errorf("session ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Session.PurgeInterval < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.purge_interval").
			Errorf("session purge interval cannot be negative")
	}
	if c.MailEnabled() && strings.TrimSpace(c.Mail.From) == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "mail.from").
			Errorf("mail sender is required when a Postmark token is set")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "log.level").
			Errorf("unknown log level %q", c.Log.Level)
	}
	if err := c.HashParams().Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "hash").Wrap(err)
	}
	return nil
}

// ValidateDatabase checks only what the migrate commands need.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database url is required (set DATABASE_URL or --database-url)")
	}
	return nil
}
