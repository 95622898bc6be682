package usecase

import (
	"context"
	"time"

	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/domain/repository"
)

const defaultHistoryLimit = 100

// LedgerUseCase manages point pools, grants and reservations.
type LedgerUseCase struct {
	ledger repository.LedgerRepository
	now    func() time.Time
}

// NewLedgerUseCase constructs LedgerUseCase.
func NewLedgerUseCase(ledger repository.LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{ledger: ledger, now: time.Now}
}

func validatePool(kind model.PointKind, tag string) error {
	if !kind.Valid() {
		return domainErrors.ErrInvalidTag
	}
	// only gift points are tagged; cash is a single withdrawable bucket
	if kind == model.PointKindCash && tag != "" {
		return domainErrors.ErrInvalidTag
	}
	return nil
}

// Grant issues points to an owner's pool. A reference seen before returns
// the original transaction and created=false.
func (u *LedgerUseCase) Grant(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reason, reference string, expiresAt *time.Time) (*model.PointTransaction, bool, error) {
	if err := validatePool(kind, tag); err != nil {
		return nil, false, err
	}
	if amount <= 0 {
		return nil, false, domainErrors.ErrInvalidAmount
	}
	pool, err := u.ledger.GetOrCreatePool(ctx, ownerID, kind, tag)
	if err != nil {
		return nil, false, err
	}
	return u.ledger.Grant(ctx, pool.ID, amount, reason, reference, expiresAt)
}

// Balance returns the pool's balance, reserved and available figures.
func (u *LedgerUseCase) Balance(ctx context.Context, ownerID int64, kind model.PointKind, tag string) (*model.BalanceDetail, error) {
	if err := validatePool(kind, tag); err != nil {
		return nil, err
	}
	pool, err := u.ledger.GetOrCreatePool(ctx, ownerID, kind, tag)
	if err != nil {
		return nil, err
	}
	return u.ledger.Balance(ctx, pool.ID)
}

// Reserve places a hold on available balance. Idempotent on reference.
func (u *LedgerUseCase) Reserve(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reference string) (*model.Reservation, bool, error) {
	if err := validatePool(kind, tag); err != nil {
		return nil, false, err
	}
	if amount <= 0 {
		return nil, false, domainErrors.ErrInvalidAmount
	}
	pool, err := u.ledger.GetOrCreatePool(ctx, ownerID, kind, tag)
	if err != nil {
		return nil, false, err
	}
	return u.ledger.Reserve(ctx, pool.ID, amount, reference)
}

// Commit finalizes an open reservation.
func (u *LedgerUseCase) Commit(ctx context.Context, reservationID int64) error {
	return u.ledger.CommitReservation(ctx, reservationID)
}

// Release returns an open reservation to available balance.
func (u *LedgerUseCase) Release(ctx context.Context, reservationID int64) error {
	return u.ledger.ReleaseReservation(ctx, reservationID)
}

// ExpireSweep removes expired unconsumed grants across all pools.
func (u *LedgerUseCase) ExpireSweep(ctx context.Context) (int64, error) {
	return u.ledger.ExpireSweep(ctx, u.now())
}

// History returns recent ledger entries for the owner's pool.
func (u *LedgerUseCase) History(ctx context.Context, ownerID int64, kind model.PointKind, tag string, limit int) ([]model.PointTransaction, error) {
	if err := validatePool(kind, tag); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	pool, err := u.ledger.GetOrCreatePool(ctx, ownerID, kind, tag)
	if err != nil {
		return nil, err
	}
	return u.ledger.ListTransactions(ctx, pool.ID, limit)
}
