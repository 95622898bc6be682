package repository

import (
	"context"
	"time"

	"github.com/opendigger/pointgate/internal/domain/model"
)

// WithdrawalRepository persists withdrawal requests. Status changes are
// compare-and-swap on the current status: a transition from a status the row
// is no longer in fails with ErrInvalidState, which is what makes concurrent
// webhook delivery and user actions safe.
type WithdrawalRepository interface {
	Create(ctx context.Context, req *model.WithdrawalRequest) (*model.WithdrawalRequest, error)
	GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error)
	GetActiveByUser(ctx context.Context, userID int64) (*model.WithdrawalRequest, error)
	GetBySigningRecord(ctx context.Context, recordID int64) (*model.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error)

	UpdateStatus(ctx context.Context, id int64, from, to model.WithdrawalStatus, reason string) error
	SetReservation(ctx context.Context, id, reservationID int64) error
	SetSigningRecord(ctx context.Context, id, recordID int64) error

	// ListSigningExpired returns signature_in_progress requests whose
	// signing record was created before the deadline.
	ListSigningExpired(ctx context.Context, deadline time.Time, limit int) ([]model.WithdrawalRequest, error)
}
