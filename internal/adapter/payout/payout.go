package payout

import (
	"context"
	"log/slog"

	"github.com/opendigger/pointgate/internal/domain/model"
)

// Acknowledger is the payout client used until a real disbursement channel
// is wired in: it records the transfer intent and reports success, leaving
// actual settlement to the downstream finance pipeline that consumes the
// completed withdrawals.
type Acknowledger struct {
	logger *slog.Logger
}

// NewAcknowledger constructs Acknowledger.
func NewAcknowledger(logger *slog.Logger) *Acknowledger {
	return &Acknowledger{logger: logger}
}

// Transfer acknowledges the payout for a signed withdrawal.
func (a *Acknowledger) Transfer(ctx context.Context, req *model.WithdrawalRequest) error {
	a.logger.Info("payout acknowledged",
		slog.Int64("withdrawal_id", req.ID),
		slog.Int64("user_id", req.UserID),
		slog.Int64("amount", req.Amount),
		slog.String("bank", req.Card.BankName))
	return nil
}
