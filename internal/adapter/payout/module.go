package payout

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/opendigger/pointgate/internal/usecase"
)

// Module provides the payout collaborator.
var Module = fx.Provide(
	func(logger *slog.Logger) usecase.PayoutClient {
		return NewAcknowledger(logger)
	},
)
