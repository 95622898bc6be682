package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(values map[string]string) envLookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func requiredEnv() map[string]string {
	return map[string]string{
		"DATABASE_URI":    "postgres://localhost/pointgate",
		"FDD_API_HOST":    "https://uat-api.fadada.com/api/v5/",
		"FDD_APP_ID":      "app-123",
		"FDD_APP_SECRET":  "secret",
		"FDD_TEMPLATE_ID": "tmpl-1",
		"PII_KEY":         "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(nil, envMap(requiredEnv()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunAddress != defaultRunAddress {
		t.Fatalf("unexpected run address %q", cfg.RunAddress)
	}
	if cfg.SigningWindow != defaultSigningWindow {
		t.Fatalf("unexpected signing window %s", cfg.SigningWindow)
	}
	if cfg.SignMaxAttempts != defaultSignMaxAttempts {
		t.Fatalf("unexpected max attempts %d", cfg.SignMaxAttempts)
	}
	if cfg.TokenTTL != defaultTokenTTL || cfg.TokenGrace != defaultTokenGrace {
		t.Fatalf("unexpected token durations %s/%s", cfg.TokenTTL, cfg.TokenGrace)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	env := requiredEnv()
	env["RUN_ADDRESS"] = ":9090"
	env["SIGNING_WINDOW"] = "2h"
	env["SIGN_MAX_ATTEMPTS"] = "5"
	env["SWEEP_INTERVAL"] = "30s"

	cfg, err := load(nil, envMap(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunAddress != ":9090" {
		t.Fatalf("unexpected run address %q", cfg.RunAddress)
	}
	if cfg.SigningWindow != 2*time.Hour {
		t.Fatalf("unexpected signing window %s", cfg.SigningWindow)
	}
	if cfg.SignMaxAttempts != 5 {
		t.Fatalf("unexpected max attempts %d", cfg.SignMaxAttempts)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Fatalf("unexpected sweep interval %s", cfg.SweepInterval)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	env := requiredEnv()
	env["RUN_ADDRESS"] = ":9090"

	args := []string{"-a", ":7070", "-signing-window", "90m", "-worker-pool", "8"}
	cfg, err := load(args, envMap(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunAddress != ":7070" {
		t.Fatalf("flag should win over env, got %q", cfg.RunAddress)
	}
	if cfg.SigningWindow != 90*time.Minute {
		t.Fatalf("unexpected signing window %s", cfg.SigningWindow)
	}
	if cfg.WorkerPoolSize != 8 {
		t.Fatalf("unexpected worker pool %d", cfg.WorkerPoolSize)
	}
}

func TestLoadSecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app-secret")
	if err := os.WriteFile(path, []byte("secret-from-file"), 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}

	env := requiredEnv()
	env["FDD_APP_SECRET_FILE"] = path

	cfg, err := load(nil, envMap(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProviderAppSecret != "secret-from-file" {
		t.Fatalf("unexpected app secret %q", cfg.ProviderAppSecret)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		drop string
	}{
		{"missing database", "DATABASE_URI"},
		{"missing provider host", "FDD_API_HOST"},
		{"missing app id", "FDD_APP_ID"},
		{"missing app secret", "FDD_APP_SECRET"},
		{"missing template", "FDD_TEMPLATE_ID"},
		{"missing pii key", "PII_KEY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := requiredEnv()
			delete(env, tc.drop)
			if _, err := load(nil, envMap(env)); err == nil {
				t.Fatalf("expected error without %s", tc.drop)
			}
		})
	}
}

func TestLoadBadDurationValues(t *testing.T) {
	env := requiredEnv()
	if _, err := load([]string{"-signing-window", "nope"}, envMap(env)); err == nil {
		t.Fatal("expected error for bad signing window")
	}

	// unparsable env durations fall back to defaults
	env["SWEEP_INTERVAL"] = "garbage"
	cfg, err := load(nil, envMap(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SweepInterval != defaultSweepInterval {
		t.Fatalf("unexpected sweep interval %s", cfg.SweepInterval)
	}
}
