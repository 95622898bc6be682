package repository

import (
	"context"
	"time"

	"github.com/opendigger/pointgate/internal/domain/model"
)

// SigningRepository persists signing records. PII columns are encrypted at
// rest by the implementation. Status updates are compare-and-swap.
type SigningRepository interface {
	Create(ctx context.Context, record *model.SigningRecord) (*model.SigningRecord, error)
	GetByID(ctx context.Context, id int64) (*model.SigningRecord, error)
	GetByCorrelator(ctx context.Context, correlator string) (*model.SigningRecord, error)

	// FindReusable returns the most recent record for the user and card
	// created after notBefore whose status is pending, sent or signed.
	FindReusable(ctx context.Context, userID int64, cardFingerprint string, notBefore time.Time) (*model.SigningRecord, error)

	UpdateStatus(ctx context.Context, id int64, from, to model.SigningStatus) error
	MarkSent(ctx context.Context, id int64, providerOrderRef string) error
	MarkSigned(ctx context.Context, id int64, signedAt time.Time) error
}
