package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/opendigger/pointgate/internal/config"
	"github.com/opendigger/pointgate/internal/domain/repository"
	"github.com/opendigger/pointgate/internal/pkg/crypt"
)

// Module wires PostgreSQL storage and repository adapters.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.Factory { return s },
		func(s *Storage) repository.LedgerRepository { return s.Ledger() },
		func(s *Storage) repository.WithdrawalRepository { return s.Withdrawals() },
		func(s *Storage) repository.SigningRepository { return s.Signings() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Cipher *crypt.Cipher
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Cipher, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
