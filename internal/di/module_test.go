package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/app"
	"github.com/opendigger/pointgate/internal/config"
	"github.com/opendigger/pointgate/internal/domain/repository"
	"github.com/opendigger/pointgate/internal/storage/postgres"
	"github.com/opendigger/pointgate/internal/test"
	"github.com/opendigger/pointgate/internal/usecase"
)

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	cfg := &config.Config{
		RunAddress:         ":0",
		DatabaseURI:        "postgres://stub",
		ServiceTokenSecret: "secret",
		PIIKeyHex:          "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		ProviderAPIHost:    "http://localhost",
		ProviderAppID:      "app",
		ProviderAppSecret:  "app-secret",
		ProviderTemplateID: "tmpl-1",
		SigningWindow:      time.Hour,
		SignMaxAttempts:    1,
		SignRetryBackoff:   time.Millisecond,
		SweepInterval:      time.Millisecond,
		SweepBatch:         1,
		WorkerPoolSize:     1,
		ShutdownTimeout:    time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ledgerRepo := test.NewLedgerRepositoryStub()
	withdrawalRepo := test.NewWithdrawalRepositoryStub()
	signingRepo := test.NewSigningRepositoryStub()

	var facade *app.PointsFacade
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(cfg),
			fx.Replace(logger),
			fx.Replace(&postgres.Storage{}),
			fx.Replace(repository.LedgerRepository(ledgerRepo)),
			fx.Replace(repository.WithdrawalRepository(withdrawalRepo)),
			fx.Replace(repository.SigningRepository(signingRepo)),
			fx.Replace(fasign.Client(&test.ProviderStub{})),
			fx.Replace(usecase.PayoutClient(&test.PayoutStub{})),
		),
		fx.Populate(&facade),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })
	if facade == nil {
		t.Fatal("expected points facade instance")
	}
}
