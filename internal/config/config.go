package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress  string
	DatabaseURI string

	// Collaborator API auth.
	ServiceTokenSecret string

	// Key for PII encryption at rest, 32 bytes hex encoded.
	PIIKeyHex string

	// Signing provider (FaDaDa-style OpenAPI).
	ProviderAPIHost    string
	ProviderAppID      string
	ProviderAppSecret  string
	ProviderTemplateID string
	ProviderTimeout    time.Duration
	TokenTTL           time.Duration
	TokenGrace         time.Duration

	// Withdrawal orchestration.
	SigningWindow    time.Duration
	SignMaxAttempts  int
	SignRetryBackoff time.Duration

	// Maintenance worker.
	SweepInterval  time.Duration
	SweepBatch     int
	WorkerPoolSize int

	ShutdownTimeout time.Duration
}

const (
	defaultRunAddress       = ":8080"
	defaultServiceSecret    = "change-me-in-production"
	defaultProviderTimeout  = 10 * time.Second
	defaultTokenTTL         = 50 * time.Minute
	defaultTokenGrace       = 5 * time.Minute
	defaultSigningWindow    = 24 * time.Hour
	defaultSignMaxAttempts  = 3
	defaultSignRetryBackoff = 2 * time.Second
	defaultSweepInterval    = time.Minute
	defaultSweepBatch       = 64
	defaultWorkerPoolSize   = 4
	defaultShutdownTimeout  = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		ServiceTokenSecret: getString(lookup, "SERVICE_TOKEN_SECRET", defaultServiceSecret),
		PIIKeyHex:          getString(lookup, "PII_KEY", ""),
		ProviderAPIHost:    getString(lookup, "FDD_API_HOST", ""),
		ProviderAppID:      getString(lookup, "FDD_APP_ID", ""),
		ProviderAppSecret:  getString(lookup, "FDD_APP_SECRET", ""),
		ProviderTemplateID: getString(lookup, "FDD_TEMPLATE_ID", ""),
		ProviderTimeout:    getDuration(lookup, "FDD_TIMEOUT", defaultProviderTimeout),
		TokenTTL:           getDuration(lookup, "FDD_TOKEN_TTL", defaultTokenTTL),
		TokenGrace:         getDuration(lookup, "FDD_TOKEN_GRACE", defaultTokenGrace),
		SigningWindow:      getDuration(lookup, "SIGNING_WINDOW", defaultSigningWindow),
		SignMaxAttempts:    getInt(lookup, "SIGN_MAX_ATTEMPTS", defaultSignMaxAttempts),
		SignRetryBackoff:   getDuration(lookup, "SIGN_RETRY_BACKOFF", defaultSignRetryBackoff),
		SweepInterval:      getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatch:         getInt(lookup, "SWEEP_BATCH", defaultSweepBatch),
		WorkerPoolSize:     getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("pointgate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		signingWindowStr   = cfg.SigningWindow.String()
		sweepIntervalStr   = cfg.SweepInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.ProviderAPIHost, "fdd-host", cfg.ProviderAPIHost, "Signing provider API base URL")
	fs.StringVar(&cfg.ProviderTemplateID, "fdd-template", cfg.ProviderTemplateID, "Contract template id")
	fs.StringVar(&signingWindowStr, "signing-window", signingWindowStr, "How long to wait for a signing callback")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between maintenance sweeps")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent maintenance workers")
	fs.IntVar(&cfg.SweepBatch, "sweep-batch", cfg.SweepBatch, "Maximum expired signings per sweep")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.SigningWindow, err = time.ParseDuration(signingWindowStr); err != nil {
		return nil, fmt.Errorf("invalid signing window: %w", err)
	}

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	for env, dst := range map[string]*string{
		"SERVICE_TOKEN_SECRET_FILE": &cfg.ServiceTokenSecret,
		"PII_KEY_FILE":              &cfg.PIIKeyHex,
		"FDD_APP_SECRET_FILE":       &cfg.ProviderAppSecret,
	} {
		if path, ok := lookup(env); ok && path != "" {
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", env, err)
			}
			*dst = string(content)
		}
	}

	if cfg.SignMaxAttempts <= 0 {
		cfg.SignMaxAttempts = defaultSignMaxAttempts
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = defaultSweepBatch
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.SigningWindow <= 0 {
		cfg.SigningWindow = defaultSigningWindow
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.ProviderAPIHost == "" || cfg.ProviderAppID == "" || cfg.ProviderAppSecret == "" {
		return nil, fmt.Errorf("signing provider host, app id and app secret must be provided")
	}
	if cfg.ProviderTemplateID == "" {
		return nil, fmt.Errorf("contract template id must be provided")
	}
	if cfg.PIIKeyHex == "" {
		return nil, fmt.Errorf("PII encryption key must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
