package repository

import (
	"context"
	"time"

	"github.com/opendigger/pointgate/internal/domain/model"
)

// LedgerRepository owns pool balances, grants, reservations and the
// append-only transaction log. Implementations must serialize mutations on a
// given pool so that available balance never goes negative.
type LedgerRepository interface {
	GetOrCreatePool(ctx context.Context, ownerID int64, kind model.PointKind, tag string) (*model.PointPool, error)
	GetPool(ctx context.Context, poolID int64) (*model.PointPool, error)

	// Grant appends a grant. A reference already recorded for the pool
	// returns the prior transaction and created=false.
	Grant(ctx context.Context, poolID, amount int64, reason, reference string, expiresAt *time.Time) (*model.PointTransaction, bool, error)

	Balance(ctx context.Context, poolID int64) (*model.BalanceDetail, error)

	// Reserve places a hold on available balance. Idempotent on reference.
	Reserve(ctx context.Context, poolID, amount int64, reference string) (*model.Reservation, bool, error)

	// CommitReservation converts an open hold into a final consumption,
	// deducting grant remainders oldest first.
	CommitReservation(ctx context.Context, reservationID int64) error

	// ReleaseReservation returns a hold to available balance. Releasing an
	// already released reservation is a no-op.
	ReleaseReservation(ctx context.Context, reservationID int64) error

	GetReservation(ctx context.Context, reservationID int64) (*model.Reservation, error)

	// ExpireSweep removes expired, unconsumed grant amounts oldest expiry
	// first, never dipping below open reservations. Returns total expired.
	ExpireSweep(ctx context.Context, now time.Time) (int64, error)

	ListTransactions(ctx context.Context, poolID int64, limit int) ([]model.PointTransaction, error)
}
