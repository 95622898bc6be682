package handlers

import (
	"context"
	"time"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/domain/model"
)

// LedgerFacade describes ledger operations exposed via HTTP.
type LedgerFacade interface {
	Grant(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reason, reference string, expiresAt *time.Time) (*model.PointTransaction, bool, error)
	Balance(ctx context.Context, ownerID int64, kind model.PointKind, tag string) (*model.BalanceDetail, error)
	Reserve(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reference string) (*model.Reservation, bool, error)
	CommitReservation(ctx context.Context, reservationID int64) error
	ReleaseReservation(ctx context.Context, reservationID int64) error
	LedgerHistory(ctx context.Context, ownerID int64, kind model.PointKind, tag string, limit int) ([]model.PointTransaction, error)
}

// WithdrawalFacade provides withdrawal lifecycle operations.
type WithdrawalFacade interface {
	CreateWithdrawal(ctx context.Context, userID, amount int64, card model.BankCard, pii model.PIISnapshot) (*model.WithdrawalRequest, error)
	GetWithdrawal(ctx context.Context, id, userID int64) (*model.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error)
	CancelWithdrawal(ctx context.Context, id, userID int64) error
}

// WebhookFacade applies verified signing callbacks.
type WebhookFacade interface {
	ApplySigningOutcome(ctx context.Context, correlator string, outcome fasign.Outcome) (*model.SigningRecord, bool, error)
	ResumeWithdrawal(ctx context.Context, signingRecordID int64) error
}

// AdminFacade exposes operator recovery actions.
type AdminFacade interface {
	RollbackWithdrawal(ctx context.Context, id int64, reason string) error
	RetriggerWithdrawal(ctx context.Context, id int64) error
}

// PointsFacade aggregates the full set of operations used across handlers.
type PointsFacade interface {
	LedgerFacade
	WithdrawalFacade
	WebhookFacade
	AdminFacade
}
