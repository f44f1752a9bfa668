// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// MinSecretLength is the minimum length of the session signing secret in bytes.
const MinSecretLength = 32

var configPath = "config.toml"

var configFile = altsrc.NewStringPtrSourcer(&configPath)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Session  SessionConfig
	Reset    ResetConfig
	SMTP     SMTPConfig
	Expiry   ExpiryConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	FrontendURL string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

// SessionConfig configures the signed session token and its transport.
type SessionConfig struct { //nolint:govet // fieldalignment not critical
	Secret       string        // global signing secret, mixed into every per-account key
	Duration     time.Duration // token lifetime
	CookieName   string
	CookieSecure bool
	CSRFHeader   string // request header carrying the anti-forgery token
}

// ResetConfig configures password reset and sign-up confirmation tokens.
type ResetConfig struct { //nolint:govet // fieldalignment not critical
	TokenTTL        time.Duration
	ConfirmationTTL time.Duration
	CookieName      string
	HashKey         string // 32-byte hex string for HMAC signing of the reset cookie
	BlockKey        string // 32-byte hex string for AES encryption (optional)
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// Enabled reports whether outbound mail is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// ExpiryConfig configures the scheduled sweep that deactivates past events.
type ExpiryConfig struct {
	Schedule string // standard 5-field cron expression
	Timezone string // IANA zone used for the schedule and for "today"
}

// Location resolves the configured timezone.
func (c ExpiryConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			FrontendURL: cmd.String("frontend-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Session: SessionConfig{
			Secret:       cmd.String("session-secret"),
			Duration:     cmd.Duration("session-duration"),
			CookieName:   cmd.String("session-cookie-name"),
			CookieSecure: cmd.Bool("session-cookie-secure"),
			CSRFHeader:   cmd.String("csrf-header"),
		},
		Reset: ResetConfig{
			TokenTTL:        cmd.Duration("reset-token-ttl"),
			ConfirmationTTL: cmd.Duration("confirmation-token-ttl"),
			CookieName:      cmd.String("reset-cookie-name"),
			HashKey:         cmd.String("reset-cookie-hash-key"),
			BlockKey:        cmd.String("reset-cookie-block-key"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Expiry: ExpiryConfig{
			Schedule: cmd.String("expiry-schedule"),
			Timezone: cmd.String("expiry-timezone"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = cfg.Server.BaseURL
	}

	applyDevDefaults(cfg)

	return cfg
}

// applyDevDefaults fills in secrets for local development so the server can
// start without a config file. Remote hosts must configure them explicitly.
func applyDevDefaults(cfg *Config) {
	if !IsLocalhost(cfg.Server.Host) {
		return
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = randomHex(MinSecretLength)
		slog.Warn("session secret not configured, using a random one (sessions end on restart)")
	}
	if cfg.Reset.HashKey == "" {
		cfg.Reset.HashKey = randomHex(32)
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Session.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength))
	}
	if c.Session.Duration <= 0 {
		errs = append(errs, errors.New("session duration must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session cookie name is required"))
	}
	if c.Session.CSRFHeader == "" {
		errs = append(errs, errors.New("csrf header name is required"))
	}
	if c.Reset.TokenTTL <= 0 || c.Reset.ConfirmationTTL <= 0 {
		errs = append(errs, errors.New("reset and confirmation token TTLs must be positive"))
	}
	if c.Reset.HashKey == "" {
		errs = append(errs, errors.New("reset cookie hash key is required"))
	}
	if _, err := c.Expiry.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	scheme := "http"
	if cfg.Session.CookieSecure {
		scheme = "https"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func source(env, key string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(cli.EnvVar(env), toml.TOML(key, configFile))
}

// Flags returns the global flags shared by all subcommands.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "config.toml",
			Usage:       "Path to configuration file",
			Destination: &configPath,
			Sources:     cli.EnvVars("CONFIG"),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: source("HOST", "server.host"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: source("PORT", "server.port"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL of the API (used in email links)",
			Sources: source("BASE_URL", "server.base_url"),
		},
		&cli.StringFlag{
			Name:    "frontend-url",
			Usage:   "Base URL of the single-page app (defaults to base_url)",
			Sources: source("FRONTEND_URL", "server.frontend_url"),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: source("MAX_BODY_SIZE", "server.max_body_size"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: source("LOG_LEVEL", "log.level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: source("LOG_FORMAT", "log.format"),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/volunteerhub.db",
			Usage:   "Database DSN",
			Sources: source("DATABASE_DSN", "database.dsn"),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-secret",
			Usage:   "Secret mixed into every session signing key (at least 32 bytes)",
			Sources: source("SESSION_SECRET", "session.secret"),
		},
		&cli.DurationFlag{
			Name:    "session-duration",
			Value:   24 * time.Hour,
			Usage:   "Lifetime of a session token",
			Sources: source("SESSION_DURATION", "session.duration"),
		},
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "session_token",
			Usage:   "Session cookie name",
			Sources: source("SESSION_COOKIE_NAME", "session.cookie_name"),
		},
		&cli.BoolFlag{
			Name:    "session-cookie-secure",
			Usage:   "Send session cookies over HTTPS only",
			Sources: source("SESSION_COOKIE_SECURE", "session.cookie_secure"),
		},
		&cli.StringFlag{
			Name:    "csrf-header",
			Value:   "csrf-token",
			Usage:   "Request header carrying the anti-forgery token",
			Sources: source("CSRF_HEADER", "session.csrf_header"),
		},
		// Reset flags
		&cli.DurationFlag{
			Name:    "reset-token-ttl",
			Value:   time.Hour,
			Usage:   "Lifetime of a password reset token",
			Sources: source("RESET_TOKEN_TTL", "reset.token_ttl"),
		},
		&cli.DurationFlag{
			Name:    "confirmation-token-ttl",
			Value:   72 * time.Hour,
			Usage:   "Lifetime of a sign-up confirmation token",
			Sources: source("CONFIRMATION_TOKEN_TTL", "reset.confirmation_ttl"),
		},
		&cli.StringFlag{
			Name:    "reset-cookie-name",
			Value:   "password_reset",
			Usage:   "Cookie carrying the reset token to the completion endpoint",
			Sources: source("RESET_COOKIE_NAME", "reset.cookie_name"),
		},
		&cli.StringFlag{
			Name:    "reset-cookie-hash-key",
			Usage:   "Reset cookie hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: source("RESET_COOKIE_HASH_KEY", "reset.hash_key"),
		},
		&cli.StringFlag{
			Name:    "reset-cookie-block-key",
			Usage:   "Reset cookie block key for encryption (32-byte hex, optional)",
			Sources: source("RESET_COOKIE_BLOCK_KEY", "reset.block_key"),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (mail is only logged when empty)",
			Sources: source("SMTP_HOST", "smtp.host"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: source("SMTP_PORT", "smtp.port"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: source("SMTP_USERNAME", "smtp.username"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: source("SMTP_PASSWORD", "smtp.password"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address",
			Sources: source("SMTP_FROM", "smtp.from"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Volunteer Hub",
			Usage:   "Sender display name",
			Sources: source("SMTP_FROM_NAME", "smtp.from_name"),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: source("SMTP_TLS", "smtp.tls"),
		},
		// Expiry flags
		&cli.StringFlag{
			Name:    "expiry-schedule",
			Value:   "0 0 * * *",
			Usage:   "Cron expression for the project expiry sweep",
			Sources: source("EXPIRY_SCHEDULE", "expiry.schedule"),
		},
		&cli.StringFlag{
			Name:    "expiry-timezone",
			Value:   "UTC",
			Usage:   "Timezone for the expiry schedule and the start of today",
			Sources: source("EXPIRY_TIMEZONE", "expiry.timezone"),
		},
	}
}
