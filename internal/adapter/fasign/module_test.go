package fasign

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/opendigger/pointgate/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{
		ProviderAPIHost:    "http://example.com",
		ProviderAppID:      "app",
		ProviderAppSecret:  "secret",
		ProviderTemplateID: "tmpl-1",
		ProviderTimeout:    time.Second,
		TokenTTL:           time.Hour,
		TokenGrace:         time.Minute,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	client, err := newClient(clientParams{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client instance")
	}
}

func TestNewVerifierUsesAppSecret(t *testing.T) {
	cfg := &config.Config{ProviderAppSecret: "secret"}
	verifier := newVerifier(clientParams{Config: cfg})
	if verifier == nil {
		t.Fatal("expected verifier instance")
	}
	if verifier.appSecret != "secret" {
		t.Fatalf("unexpected secret %q", verifier.appSecret)
	}
}
