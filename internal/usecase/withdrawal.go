package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/domain/repository"
)

// PayoutClient executes the actual money transfer for a signed withdrawal.
type PayoutClient interface {
	Transfer(ctx context.Context, req *model.WithdrawalRequest) error
}

// WithdrawalOptions tunes the orchestration behavior.
type WithdrawalOptions struct {
	TemplateID    string
	SigningWindow time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
}

// WithdrawalUseCase drives a withdrawal through its authorization states:
// reserve points, obtain a signed e-contract, execute the payout, settle the
// reservation. Every transition is compare-and-swap so concurrent webhooks,
// user actions and maintenance sweeps cannot double-apply.
type WithdrawalUseCase struct {
	withdrawals repository.WithdrawalRepository
	ledger      repository.LedgerRepository
	signings    *SigningUseCase
	provider    fasign.Client
	payout      PayoutClient
	opts        WithdrawalOptions
	logger      *slog.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewWithdrawalUseCase constructs WithdrawalUseCase.
func NewWithdrawalUseCase(
	withdrawals repository.WithdrawalRepository,
	ledger repository.LedgerRepository,
	signings *SigningUseCase,
	provider fasign.Client,
	payout PayoutClient,
	opts WithdrawalOptions,
	logger *slog.Logger,
) *WithdrawalUseCase {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &WithdrawalUseCase{
		withdrawals: withdrawals,
		ledger:      ledger,
		signings:    signings,
		provider:    provider,
		payout:      payout,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Create starts a withdrawal: places a hold on the user's cash pool and
// arranges an e-contract signature, reusing an unexpired signing record for
// the same bank card when one exists.
func (u *WithdrawalUseCase) Create(ctx context.Context, userID, amount int64, card model.BankCard, pii model.PIISnapshot) (*model.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, domainErrors.ErrInvalidAmount
	}
	if card.Account == "" {
		return nil, domainErrors.ErrInvalidAmount
	}

	if _, err := u.withdrawals.GetActiveByUser(ctx, userID); err == nil {
		return nil, domainErrors.ErrWithdrawalInProgress
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	pool, err := u.ledger.GetOrCreatePool(ctx, userID, model.PointKindCash, "")
	if err != nil {
		return nil, err
	}

	req, err := u.withdrawals.Create(ctx, &model.WithdrawalRequest{
		UserID:          userID,
		PoolID:          pool.ID,
		Amount:          amount,
		Card:            card,
		CardFingerprint: CardFingerprint(card.Account),
		Status:          model.WithdrawalDraft,
	})
	if err != nil {
		return nil, err
	}

	reservation, _, err := u.ledger.Reserve(ctx, pool.ID, amount, fmt.Sprintf("withdrawal:%d", req.ID))
	if err != nil {
		if errors.Is(err, domainErrors.ErrInsufficientBalance) {
			_ = u.withdrawals.UpdateStatus(ctx, req.ID, model.WithdrawalDraft, model.WithdrawalFailed, "insufficient balance")
		}
		return nil, err
	}
	if err := u.withdrawals.SetReservation(ctx, req.ID, reservation.ID); err != nil {
		return nil, err
	}
	req.ReservationID = &reservation.ID

	if err := u.withdrawals.UpdateStatus(ctx, req.ID, model.WithdrawalDraft, model.WithdrawalAwaitingSignature, ""); err != nil {
		return nil, err
	}

	if err := u.ensureSigning(ctx, req, pii); err != nil {
		return nil, err
	}

	return u.withdrawals.GetByID(ctx, req.ID)
}

// ensureSigning attaches a signing record to the request and advances the
// state machine as far as the record allows.
func (u *WithdrawalUseCase) ensureSigning(ctx context.Context, req *model.WithdrawalRequest, pii model.PIISnapshot) error {
	record, err := u.signings.FindReusable(ctx, req.UserID, req.CardFingerprint, u.opts.SigningWindow)
	fresh := false
	if err != nil {
		if !errors.Is(err, domainErrors.ErrRecordNotFound) {
			return err
		}
		record, err = u.signings.NewRecord(ctx, req.UserID, pii, u.opts.TemplateID)
		if err != nil {
			return err
		}
		fresh = true
	}

	if err := u.withdrawals.SetSigningRecord(ctx, req.ID, record.ID); err != nil {
		return err
	}
	if err := u.withdrawals.UpdateStatus(ctx, req.ID, model.WithdrawalAwaitingSignature, model.WithdrawalSignatureInFlight, ""); err != nil {
		return err
	}

	switch {
	case record.Status == model.SigningSigned:
		// signed contract on file for this card, skip the provider round-trip
		if err := u.withdrawals.UpdateStatus(ctx, req.ID, model.WithdrawalSignatureInFlight, model.WithdrawalSigned, ""); err != nil {
			return err
		}
		return u.Submit(ctx, req.ID)
	case fresh || record.Status == model.SigningPending:
		if err := u.sendToProvider(ctx, record); err != nil {
			return u.failAndRelease(ctx, req.ID, req.ReservationID, model.WithdrawalSignatureInFlight, "provider send failed: "+err.Error())
		}
	}
	// a reused record already sent just waits for its callback
	return nil
}

// sendToProvider issues the sign task with bounded retries on transient
// provider failures.
func (u *WithdrawalUseCase) sendToProvider(ctx context.Context, record *model.SigningRecord) error {
	var lastErr error
	for attempt := 1; attempt <= u.opts.MaxAttempts; attempt++ {
		orderRef, err := u.provider.SignWithTemplate(ctx, record.PII, record.Correlator)
		if err == nil {
			if err := u.signings.signings.MarkSent(ctx, record.ID, orderRef); err != nil && !errors.Is(err, domainErrors.ErrInvalidState) {
				return err
			}
			record.Status = model.SigningSent
			record.ProviderOrderRef = orderRef
			return nil
		}
		lastErr = err
		if !fasign.IsRetryable(err) {
			break
		}
		u.logger.Warn("sign task send failed, will retry",
			slog.Int("attempt", attempt),
			slog.String("correlator", record.Correlator),
			slog.String("error", err.Error()))
		if attempt < u.opts.MaxAttempts {
			if err := u.sleep(ctx, u.opts.RetryBackoff); err != nil {
				return err
			}
		}
	}

	if err := u.signings.signings.UpdateStatus(ctx, record.ID, record.Status, model.SigningFailed); err != nil && !errors.Is(err, domainErrors.ErrInvalidState) {
		u.logger.Error("mark signing record failed", slog.String("error", err.Error()))
	}
	return lastErr
}

// ResumeFromSigning advances the withdrawal attached to a signing record
// after the record reached a new status. Safe to call repeatedly.
func (u *WithdrawalUseCase) ResumeFromSigning(ctx context.Context, recordID int64) error {
	record, err := u.signings.signings.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	req, err := u.withdrawals.GetBySigningRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			// a reusable contract signed outside any live withdrawal
			return nil
		}
		return err
	}
	if req.Status.Terminal() {
		return nil
	}

	switch record.Status {
	case model.SigningSigned:
		if err := u.withdrawals.UpdateStatus(ctx, req.ID, model.WithdrawalSignatureInFlight, model.WithdrawalSigned, ""); err != nil {
			if errors.Is(err, domainErrors.ErrInvalidState) {
				return nil
			}
			return err
		}
		return u.Submit(ctx, req.ID)
	case model.SigningFailed, model.SigningExpired:
		return u.failAndRelease(ctx, req.ID, req.ReservationID, req.Status, "signing "+string(record.Status))
	}
	return nil
}

// Submit executes the payout for a signed withdrawal and settles the
// reservation: commit on success, release on failure.
func (u *WithdrawalUseCase) Submit(ctx context.Context, id int64) error {
	req, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := u.withdrawals.UpdateStatus(ctx, id, model.WithdrawalSigned, model.WithdrawalSubmitted, ""); err != nil {
		return err
	}

	if err := u.payout.Transfer(ctx, req); err != nil {
		u.logger.Error("payout transfer failed",
			slog.Int64("withdrawal_id", id),
			slog.String("error", err.Error()))
		return u.failAndRelease(ctx, id, req.ReservationID, model.WithdrawalSubmitted, "payout failed: "+err.Error())
	}

	if req.ReservationID != nil {
		if err := u.ledger.CommitReservation(ctx, *req.ReservationID); err != nil {
			if !errors.Is(err, domainErrors.ErrInvalidState) {
				return err
			}
			res, resErr := u.ledger.GetReservation(ctx, *req.ReservationID)
			if resErr != nil {
				return resErr
			}
			// a repeated Submit finds the hold already committed; anything
			// else means the hold was refunded under us and the payout must
			// not settle as completed
			if res.Status != model.ReservationCommitted {
				u.logger.Error("reservation lost before settlement",
					slog.Int64("withdrawal_id", id),
					slog.Int64("reservation_id", *req.ReservationID),
					slog.String("reservation_status", string(res.Status)))
				return u.failAndRelease(ctx, id, nil, model.WithdrawalSubmitted, "reservation no longer open at settlement")
			}
		}
	}
	return u.withdrawals.UpdateStatus(ctx, id, model.WithdrawalSubmitted, model.WithdrawalCompleted, "")
}

// Cancel aborts a withdrawal the user no longer wants. Allowed until the
// payout is submitted.
func (u *WithdrawalUseCase) Cancel(ctx context.Context, id, userID int64) error {
	req, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.UserID != userID {
		return domainErrors.ErrNotFound
	}
	switch req.Status {
	case model.WithdrawalDraft, model.WithdrawalAwaitingSignature, model.WithdrawalSignatureInFlight, model.WithdrawalSigned:
	default:
		return domainErrors.ErrInvalidState
	}
	if err := u.withdrawals.UpdateStatus(ctx, id, req.Status, model.WithdrawalCancelled, "cancelled by user"); err != nil {
		return err
	}
	return u.releaseQuiet(ctx, req.ReservationID)
}

// ListSigningExpired returns withdrawals whose signature was not collected
// within the configured window.
func (u *WithdrawalUseCase) ListSigningExpired(ctx context.Context, limit int) ([]model.WithdrawalRequest, error) {
	deadline := u.now().Add(-u.opts.SigningWindow)
	return u.withdrawals.ListSigningExpired(ctx, deadline, limit)
}

// ExpireSignature fails one withdrawal whose signing window ran out and
// returns its hold to the ledger.
func (u *WithdrawalUseCase) ExpireSignature(ctx context.Context, req *model.WithdrawalRequest) error {
	if req.SigningRecordID != nil {
		u.expireRecordQuiet(ctx, *req.SigningRecordID)
	}
	return u.failAndRelease(ctx, req.ID, req.ReservationID, model.WithdrawalSignatureInFlight, domainErrors.ErrSigningWindowExpired.Error())
}

// ExpireSigningWindows runs the full expiry pass and returns the number of
// withdrawals failed.
func (u *WithdrawalUseCase) ExpireSigningWindows(ctx context.Context, limit int) (int, error) {
	expired, err := u.ListSigningExpired(ctx, limit)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range expired {
		if err := u.ExpireSignature(ctx, &expired[i]); err != nil {
			u.logger.Error("expire signing window",
				slog.Int64("withdrawal_id", expired[i].ID),
				slog.String("error", err.Error()))
			continue
		}
		count++
	}
	return count, nil
}

func (u *WithdrawalUseCase) expireRecordQuiet(ctx context.Context, recordID int64) {
	for _, from := range []model.SigningStatus{model.SigningSent, model.SigningPending} {
		err := u.signings.signings.UpdateStatus(ctx, recordID, from, model.SigningExpired)
		if err == nil || !errors.Is(err, domainErrors.ErrInvalidState) {
			return
		}
	}
}

// Rollback is the administrative escape hatch: force a non-terminal
// withdrawal to failed and release its hold.
func (u *WithdrawalUseCase) Rollback(ctx context.Context, id int64, reason string) error {
	req, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.Status.Terminal() {
		return domainErrors.ErrInvalidState
	}
	if reason == "" {
		reason = "administrative rollback"
	}
	return u.failAndRelease(ctx, id, req.ReservationID, req.Status, reason)
}

// Retrigger re-issues the provider send for a stuck signature, minting a new
// record from the PII snapshot of the previous one.
func (u *WithdrawalUseCase) Retrigger(ctx context.Context, id int64) error {
	req, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != model.WithdrawalSignatureInFlight || req.SigningRecordID == nil {
		return domainErrors.ErrInvalidState
	}

	old, err := u.signings.signings.GetByID(ctx, *req.SigningRecordID)
	if err != nil {
		return err
	}
	u.expireRecordQuiet(ctx, old.ID)

	record, err := u.signings.NewRecord(ctx, req.UserID, old.PII, u.opts.TemplateID)
	if err != nil {
		return err
	}
	if err := u.withdrawals.SetSigningRecord(ctx, req.ID, record.ID); err != nil {
		return err
	}
	if err := u.sendToProvider(ctx, record); err != nil {
		return u.failAndRelease(ctx, req.ID, req.ReservationID, model.WithdrawalSignatureInFlight, "provider send failed: "+err.Error())
	}
	return nil
}

// List returns the user's withdrawals, newest first.
func (u *WithdrawalUseCase) List(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	return u.withdrawals.ListByUser(ctx, userID)
}

// Get returns a withdrawal if it belongs to the user.
func (u *WithdrawalUseCase) Get(ctx context.Context, id, userID int64) (*model.WithdrawalRequest, error) {
	req, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	return req, nil
}

// failAndRelease moves the request to failed and, only when it won that
// transition, returns the hold to the ledger. A lost CAS means another actor
// (a signed webhook, a concurrent sweep) owns the request now and the hold is
// theirs to settle.
func (u *WithdrawalUseCase) failAndRelease(ctx context.Context, id int64, reservationID *int64, from model.WithdrawalStatus, reason string) error {
	if err := u.withdrawals.UpdateStatus(ctx, id, from, model.WithdrawalFailed, reason); err != nil {
		if errors.Is(err, domainErrors.ErrInvalidState) {
			return nil
		}
		return err
	}
	return u.releaseQuiet(ctx, reservationID)
}

func (u *WithdrawalUseCase) releaseQuiet(ctx context.Context, reservationID *int64) error {
	if reservationID == nil {
		return nil
	}
	if err := u.ledger.ReleaseReservation(ctx, *reservationID); err != nil && !errors.Is(err, domainErrors.ErrInvalidState) {
		return err
	}
	return nil
}
