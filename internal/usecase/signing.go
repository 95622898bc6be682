package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/domain/repository"
)

// SigningUseCase manages signing records and applies verified callback
// outcomes to them.
type SigningUseCase struct {
	signings repository.SigningRepository
	now      func() time.Time
}

// NewSigningUseCase constructs SigningUseCase.
func NewSigningUseCase(signings repository.SigningRepository) *SigningUseCase {
	return &SigningUseCase{signings: signings, now: time.Now}
}

// CardFingerprint derives a stable lookup key from a bank account number so
// reuse checks work without decrypting stored PII.
func CardFingerprint(account string) string {
	sum := sha256.Sum256([]byte(account))
	return hex.EncodeToString(sum[:])
}

func newCorrelator() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// NewRecord creates a pending signing record with a fresh correlator and an
// immutable PII snapshot.
func (u *SigningUseCase) NewRecord(ctx context.Context, userID int64, pii model.PIISnapshot, templateID string) (*model.SigningRecord, error) {
	record := &model.SigningRecord{
		Correlator:      newCorrelator(),
		UserID:          userID,
		PII:             pii,
		CardFingerprint: CardFingerprint(pii.BankAccount),
		TemplateID:      templateID,
		Status:          model.SigningPending,
	}
	return u.signings.Create(ctx, record)
}

// FindReusable returns an unexpired record for the user and card, if any.
func (u *SigningUseCase) FindReusable(ctx context.Context, userID int64, cardFingerprint string, window time.Duration) (*model.SigningRecord, error) {
	return u.signings.FindReusable(ctx, userID, cardFingerprint, u.now().Add(-window))
}

// ApplyOutcome transitions the record identified by correlator according to
// a verified callback. A record already in a terminal status is returned
// unchanged with transitioned=false, which is how duplicate deliveries
// stay side-effect free.
func (u *SigningUseCase) ApplyOutcome(ctx context.Context, correlator string, outcome fasign.Outcome) (*model.SigningRecord, bool, error) {
	record, err := u.signings.GetByCorrelator(ctx, correlator)
	if err != nil {
		return nil, false, err
	}
	if record.Status.Terminal() {
		return record, false, nil
	}

	switch outcome {
	case fasign.OutcomeSigned:
		signedAt := u.now()
		if err := u.signings.MarkSigned(ctx, record.ID, signedAt); err != nil {
			return nil, false, err
		}
		record.Status = model.SigningSigned
		record.SignedAt = &signedAt
		return record, true, nil
	case fasign.OutcomeFailed:
		if err := u.signings.UpdateStatus(ctx, record.ID, record.Status, model.SigningFailed); err != nil {
			return nil, false, err
		}
		record.Status = model.SigningFailed
		return record, true, nil
	default:
		return record, false, nil
	}
}
