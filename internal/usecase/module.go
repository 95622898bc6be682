package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/config"
	"github.com/opendigger/pointgate/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewLedgerUseCase,
	NewSigningUseCase,
	newWithdrawalUseCase,
)

type withdrawalParams struct {
	fx.In

	Withdrawals repository.WithdrawalRepository
	Ledger      repository.LedgerRepository
	Signings    *SigningUseCase
	Provider    fasign.Client
	Payout      PayoutClient
	Config      *config.Config
	Logger      *slog.Logger
}

func newWithdrawalUseCase(p withdrawalParams) *WithdrawalUseCase {
	opts := WithdrawalOptions{
		TemplateID:    p.Config.ProviderTemplateID,
		SigningWindow: p.Config.SigningWindow,
		MaxAttempts:   p.Config.SignMaxAttempts,
		RetryBackoff:  p.Config.SignRetryBackoff,
	}
	return NewWithdrawalUseCase(p.Withdrawals, p.Ledger, p.Signings, p.Provider, p.Payout, opts, p.Logger)
}
