package app

import (
	"context"
	"time"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/usecase"
)

// PointsFacade is the application entry point the HTTP layer and the
// maintenance worker talk to.
type PointsFacade struct {
	ledger      *usecase.LedgerUseCase
	withdrawals *usecase.WithdrawalUseCase
	signings    *usecase.SigningUseCase
}

// NewPointsFacade constructs PointsFacade.
func NewPointsFacade(ledger *usecase.LedgerUseCase, withdrawals *usecase.WithdrawalUseCase, signings *usecase.SigningUseCase) *PointsFacade {
	return &PointsFacade{ledger: ledger, withdrawals: withdrawals, signings: signings}
}

func (f *PointsFacade) Grant(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reason, reference string, expiresAt *time.Time) (*model.PointTransaction, bool, error) {
	return f.ledger.Grant(ctx, ownerID, kind, tag, amount, reason, reference, expiresAt)
}

func (f *PointsFacade) Balance(ctx context.Context, ownerID int64, kind model.PointKind, tag string) (*model.BalanceDetail, error) {
	return f.ledger.Balance(ctx, ownerID, kind, tag)
}

func (f *PointsFacade) Reserve(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reference string) (*model.Reservation, bool, error) {
	return f.ledger.Reserve(ctx, ownerID, kind, tag, amount, reference)
}

func (f *PointsFacade) CommitReservation(ctx context.Context, reservationID int64) error {
	return f.ledger.Commit(ctx, reservationID)
}

func (f *PointsFacade) ReleaseReservation(ctx context.Context, reservationID int64) error {
	return f.ledger.Release(ctx, reservationID)
}

func (f *PointsFacade) LedgerHistory(ctx context.Context, ownerID int64, kind model.PointKind, tag string, limit int) ([]model.PointTransaction, error) {
	return f.ledger.History(ctx, ownerID, kind, tag, limit)
}

func (f *PointsFacade) CreateWithdrawal(ctx context.Context, userID, amount int64, card model.BankCard, pii model.PIISnapshot) (*model.WithdrawalRequest, error) {
	return f.withdrawals.Create(ctx, userID, amount, card, pii)
}

func (f *PointsFacade) GetWithdrawal(ctx context.Context, id, userID int64) (*model.WithdrawalRequest, error) {
	return f.withdrawals.Get(ctx, id, userID)
}

func (f *PointsFacade) ListWithdrawals(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	return f.withdrawals.List(ctx, userID)
}

func (f *PointsFacade) CancelWithdrawal(ctx context.Context, id, userID int64) error {
	return f.withdrawals.Cancel(ctx, id, userID)
}

func (f *PointsFacade) RollbackWithdrawal(ctx context.Context, id int64, reason string) error {
	return f.withdrawals.Rollback(ctx, id, reason)
}

func (f *PointsFacade) RetriggerWithdrawal(ctx context.Context, id int64) error {
	return f.withdrawals.Retrigger(ctx, id)
}

// ApplySigningOutcome transitions the signing record a verified callback
// refers to and reports whether a state change happened.
func (f *PointsFacade) ApplySigningOutcome(ctx context.Context, correlator string, outcome fasign.Outcome) (*model.SigningRecord, bool, error) {
	return f.signings.ApplyOutcome(ctx, correlator, outcome)
}

// ResumeWithdrawal pushes the withdrawal attached to a signing record
// forward after the record changed status.
func (f *PointsFacade) ResumeWithdrawal(ctx context.Context, signingRecordID int64) error {
	return f.withdrawals.ResumeFromSigning(ctx, signingRecordID)
}

func (f *PointsFacade) SweepExpiredGrants(ctx context.Context) (int64, error) {
	return f.ledger.ExpireSweep(ctx)
}

func (f *PointsFacade) ExpiredSigningWithdrawals(ctx context.Context, limit int) ([]model.WithdrawalRequest, error) {
	return f.withdrawals.ListSigningExpired(ctx, limit)
}

func (f *PointsFacade) ExpireWithdrawalSignature(ctx context.Context, req *model.WithdrawalRequest) error {
	return f.withdrawals.ExpireSignature(ctx, req)
}
