package test

import (
	"context"
	"sync"
	"time"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/domain/model"
)

// LedgerFacadeStub lets handler tests script ledger operations.
type LedgerFacadeStub struct {
	GrantFn   func(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reason, reference string, expiresAt *time.Time) (*model.PointTransaction, bool, error)
	BalanceFn func(ctx context.Context, ownerID int64, kind model.PointKind, tag string) (*model.BalanceDetail, error)
	ReserveFn func(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reference string) (*model.Reservation, bool, error)
	CommitFn  func(ctx context.Context, reservationID int64) error
	ReleaseFn func(ctx context.Context, reservationID int64) error
	HistoryFn func(ctx context.Context, ownerID int64, kind model.PointKind, tag string, limit int) ([]model.PointTransaction, error)
}

func (s LedgerFacadeStub) Grant(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reason, reference string, expiresAt *time.Time) (*model.PointTransaction, bool, error) {
	if s.GrantFn != nil {
		return s.GrantFn(ctx, ownerID, kind, tag, amount, reason, reference, expiresAt)
	}
	return &model.PointTransaction{ID: 1, Kind: model.TransactionGrant, Delta: amount}, true, nil
}

func (s LedgerFacadeStub) Balance(ctx context.Context, ownerID int64, kind model.PointKind, tag string) (*model.BalanceDetail, error) {
	if s.BalanceFn != nil {
		return s.BalanceFn(ctx, ownerID, kind, tag)
	}
	return &model.BalanceDetail{}, nil
}

func (s LedgerFacadeStub) Reserve(ctx context.Context, ownerID int64, kind model.PointKind, tag string, amount int64, reference string) (*model.Reservation, bool, error) {
	if s.ReserveFn != nil {
		return s.ReserveFn(ctx, ownerID, kind, tag, amount, reference)
	}
	return &model.Reservation{ID: 1, Amount: amount, Status: model.ReservationOpen, Reference: reference}, true, nil
}

func (s LedgerFacadeStub) CommitReservation(ctx context.Context, reservationID int64) error {
	if s.CommitFn != nil {
		return s.CommitFn(ctx, reservationID)
	}
	return nil
}

func (s LedgerFacadeStub) ReleaseReservation(ctx context.Context, reservationID int64) error {
	if s.ReleaseFn != nil {
		return s.ReleaseFn(ctx, reservationID)
	}
	return nil
}

func (s LedgerFacadeStub) LedgerHistory(ctx context.Context, ownerID int64, kind model.PointKind, tag string, limit int) ([]model.PointTransaction, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, ownerID, kind, tag, limit)
	}
	return nil, nil
}

// WithdrawalFacadeStub lets handler tests script withdrawal operations.
type WithdrawalFacadeStub struct {
	CreateFn func(ctx context.Context, userID, amount int64, card model.BankCard, pii model.PIISnapshot) (*model.WithdrawalRequest, error)
	GetFn    func(ctx context.Context, id, userID int64) (*model.WithdrawalRequest, error)
	ListFn   func(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error)
	CancelFn func(ctx context.Context, id, userID int64) error
}

func (s WithdrawalFacadeStub) CreateWithdrawal(ctx context.Context, userID, amount int64, card model.BankCard, pii model.PIISnapshot) (*model.WithdrawalRequest, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, userID, amount, card, pii)
	}
	return &model.WithdrawalRequest{ID: 1, UserID: userID, Amount: amount, Card: card, Status: model.WithdrawalSignatureInFlight}, nil
}

func (s WithdrawalFacadeStub) GetWithdrawal(ctx context.Context, id, userID int64) (*model.WithdrawalRequest, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id, userID)
	}
	return &model.WithdrawalRequest{ID: id, UserID: userID}, nil
}

func (s WithdrawalFacadeStub) ListWithdrawals(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, userID)
	}
	return nil, nil
}

func (s WithdrawalFacadeStub) CancelWithdrawal(ctx context.Context, id, userID int64) error {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, id, userID)
	}
	return nil
}

// WebhookFacadeStub records callback applications for handler tests.
type WebhookFacadeStub struct {
	mu sync.Mutex

	ApplyFn  func(ctx context.Context, correlator string, outcome fasign.Outcome) (*model.SigningRecord, bool, error)
	ResumeFn func(ctx context.Context, signingRecordID int64) error

	Applied []string
	Resumed []int64

	// ResumedCh signals asynchronous resume calls when set.
	ResumedCh chan int64
}

func (s *WebhookFacadeStub) ApplySigningOutcome(ctx context.Context, correlator string, outcome fasign.Outcome) (*model.SigningRecord, bool, error) {
	s.mu.Lock()
	s.Applied = append(s.Applied, correlator)
	s.mu.Unlock()
	if s.ApplyFn != nil {
		return s.ApplyFn(ctx, correlator, outcome)
	}
	return &model.SigningRecord{ID: 1, Correlator: correlator, Status: model.SigningSigned}, true, nil
}

func (s *WebhookFacadeStub) ResumeWithdrawal(ctx context.Context, signingRecordID int64) error {
	s.mu.Lock()
	s.Resumed = append(s.Resumed, signingRecordID)
	s.mu.Unlock()
	if s.ResumedCh != nil {
		s.ResumedCh <- signingRecordID
	}
	if s.ResumeFn != nil {
		return s.ResumeFn(ctx, signingRecordID)
	}
	return nil
}

// AppliedCount returns how many callbacks reached the facade.
func (s *WebhookFacadeStub) AppliedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Applied)
}

// PointsFacadeStub bundles the per-concern stubs into the full facade
// surface the router expects.
type PointsFacadeStub struct {
	LedgerFacadeStub
	WithdrawalFacadeStub
	*WebhookFacadeStub
	AdminFacadeStub
}

// NewPointsFacadeStub builds a stub with default behaviors.
func NewPointsFacadeStub() *PointsFacadeStub {
	return &PointsFacadeStub{WebhookFacadeStub: &WebhookFacadeStub{}}
}

// AdminFacadeStub records operator actions for handler tests.
type AdminFacadeStub struct {
	RollbackFn  func(ctx context.Context, id int64, reason string) error
	RetriggerFn func(ctx context.Context, id int64) error
}

func (s AdminFacadeStub) RollbackWithdrawal(ctx context.Context, id int64, reason string) error {
	if s.RollbackFn != nil {
		return s.RollbackFn(ctx, id, reason)
	}
	return nil
}

func (s AdminFacadeStub) RetriggerWithdrawal(ctx context.Context, id int64) error {
	if s.RetriggerFn != nil {
		return s.RetriggerFn(ctx, id)
	}
	return nil
}
