package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
	"github.com/opendigger/pointgate/internal/domain/model"
)

// LedgerRepositoryStub keeps pools, grants and reservations in memory with
// the same balance semantics as the real storage.
type LedgerRepositoryStub struct {
	mu           sync.Mutex
	Pools        map[int64]*model.PointPool
	Grants       []*model.PointGrant
	Transactions []*model.PointTransaction
	Reservations map[int64]*model.Reservation
	NextID       int64
	Err          error
}

// NewLedgerRepositoryStub constructs stub ledger with initialized maps.
func NewLedgerRepositoryStub() *LedgerRepositoryStub {
	return &LedgerRepositoryStub{
		Pools:        make(map[int64]*model.PointPool),
		Reservations: make(map[int64]*model.Reservation),
		NextID:       1,
	}
}

func (s *LedgerRepositoryStub) nextID() int64 {
	id := s.NextID
	s.NextID++
	return id
}

// GetOrCreatePool finds or makes the pool for an owner/kind/tag triple.
func (s *LedgerRepositoryStub) GetOrCreatePool(ctx context.Context, ownerID int64, kind model.PointKind, tag string) (*model.PointPool, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pool := range s.Pools {
		if pool.OwnerID == ownerID && pool.Kind == kind && pool.Tag == tag {
			return pool, nil
		}
	}
	pool := &model.PointPool{ID: s.nextID(), OwnerID: ownerID, Kind: kind, Tag: tag, CreatedAt: time.Now()}
	s.Pools[pool.ID] = pool
	return pool, nil
}

// GetPool fetches a pool or returns not found.
func (s *LedgerRepositoryStub) GetPool(ctx context.Context, poolID int64) (*model.PointPool, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pool, ok := s.Pools[poolID]; ok {
		return pool, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (s *LedgerRepositoryStub) appendTransaction(poolID int64, kind model.TransactionKind, delta int64, reason, reference string) *model.PointTransaction {
	txn := &model.PointTransaction{
		ID:        s.nextID(),
		PoolID:    poolID,
		Kind:      kind,
		Delta:     delta,
		Reason:    reason,
		Reference: reference,
		CreatedAt: time.Now(),
	}
	s.Transactions = append(s.Transactions, txn)
	return txn
}

// Grant records a grant; replays on reference return the first transaction.
func (s *LedgerRepositoryStub) Grant(ctx context.Context, poolID, amount int64, reason, reference string, expiresAt *time.Time) (*model.PointTransaction, bool, error) {
	if s.Err != nil {
		return nil, false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Pools[poolID]; !ok {
		return nil, false, domainErrors.ErrNotFound
	}
	if reference != "" {
		for _, txn := range s.Transactions {
			if txn.PoolID == poolID && txn.Kind == model.TransactionGrant && txn.Reference == reference {
				return txn, false, nil
			}
		}
	}
	s.Grants = append(s.Grants, &model.PointGrant{
		ID: s.nextID(), PoolID: poolID, Amount: amount, Remaining: amount,
		Reason: reason, Reference: reference, ExpiresAt: expiresAt, CreatedAt: time.Now(),
	})
	return s.appendTransaction(poolID, model.TransactionGrant, amount, reason, reference), true, nil
}

func (s *LedgerRepositoryStub) balances(poolID int64) (balance, reserved int64) {
	for _, g := range s.Grants {
		if g.PoolID == poolID && g.Remaining > 0 {
			balance += g.Remaining
		}
	}
	for _, r := range s.Reservations {
		if r.PoolID == poolID && r.Status == model.ReservationOpen {
			reserved += r.Amount
		}
	}
	return balance, reserved
}

// Balance reports balance, reserved and available for the pool.
func (s *LedgerRepositoryStub) Balance(ctx context.Context, poolID int64) (*model.BalanceDetail, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, reserved := s.balances(poolID)
	return &model.BalanceDetail{Balance: balance, Reserved: reserved, Available: balance - reserved}, nil
}

// Reserve places a hold; replays on reference return the first reservation.
func (s *LedgerRepositoryStub) Reserve(ctx context.Context, poolID, amount int64, reference string) (*model.Reservation, bool, error) {
	if s.Err != nil {
		return nil, false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Pools[poolID]; !ok {
		return nil, false, domainErrors.ErrNotFound
	}
	if reference != "" {
		for _, r := range s.Reservations {
			if r.Reference == reference {
				return r, false, nil
			}
		}
	}
	balance, reserved := s.balances(poolID)
	if amount > balance-reserved {
		return nil, false, domainErrors.ErrInsufficientBalance
	}
	res := &model.Reservation{
		ID: s.nextID(), PoolID: poolID, Amount: amount,
		Status: model.ReservationOpen, Reference: reference,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.Reservations[res.ID] = res
	s.appendTransaction(poolID, model.TransactionReserve, -amount, "reserve for withdrawal", reference)
	return res, true, nil
}

// CommitReservation finalizes an open hold and consumes grant remainders.
func (s *LedgerRepositoryStub) CommitReservation(ctx context.Context, reservationID int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.Reservations[reservationID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if res.Status != model.ReservationOpen {
		return domainErrors.ErrInvalidState
	}
	res.Status = model.ReservationCommitted
	left := res.Amount
	for _, g := range s.Grants {
		if g.PoolID != res.PoolID || g.Remaining <= 0 {
			continue
		}
		take := g.Remaining
		if take > left {
			take = left
		}
		g.Remaining -= take
		left -= take
		if left == 0 {
			break
		}
	}
	s.appendTransaction(res.PoolID, model.TransactionCommit, 0, "commit reservation", fmt.Sprintf("reservation:%d", reservationID))
	return nil
}

// ReleaseReservation reopens held amount; repeated release is a no-op.
func (s *LedgerRepositoryStub) ReleaseReservation(ctx context.Context, reservationID int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.Reservations[reservationID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if res.Status == model.ReservationReleased {
		return nil
	}
	if res.Status == model.ReservationCommitted {
		return domainErrors.ErrInvalidState
	}
	res.Status = model.ReservationReleased
	s.appendTransaction(res.PoolID, model.TransactionRelease, res.Amount, "release reservation", fmt.Sprintf("reservation:%d", reservationID))
	return nil
}

// GetReservation fetches a hold by id.
func (s *LedgerRepositoryStub) GetReservation(ctx context.Context, reservationID int64) (*model.Reservation, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.Reservations[reservationID]; ok {
		return res, nil
	}
	return nil, domainErrors.ErrNotFound
}

// ExpireSweep removes expired grant remainders capped at available balance.
func (s *LedgerRepositoryStub) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	perPool := make(map[int64]int64)
	for _, g := range s.Grants {
		if g.Remaining > 0 && g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
			balance, reserved := s.balances(g.PoolID)
			available := balance - reserved - perPool[g.PoolID]
			if available <= 0 {
				continue
			}
			take := g.Remaining
			if take > available {
				take = available
			}
			g.Remaining -= take
			perPool[g.PoolID] += take
		}
	}

	var total int64
	for poolID, expired := range perPool {
		s.appendTransaction(poolID, model.TransactionExpire, -expired, "expired grants sweep", "")
		total += expired
	}
	return total, nil
}

// ListTransactions returns entries for the pool, newest first.
func (s *LedgerRepositoryStub) ListTransactions(ctx context.Context, poolID int64, limit int) ([]model.PointTransaction, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.PointTransaction
	for i := len(s.Transactions) - 1; i >= 0 && len(result) < limit; i-- {
		if s.Transactions[i].PoolID == poolID {
			result = append(result, *s.Transactions[i])
		}
	}
	return result, nil
}

// WithdrawalRepositoryStub keeps withdrawal requests in memory with CAS
// status updates.
type WithdrawalRepositoryStub struct {
	mu       sync.Mutex
	Requests map[int64]*model.WithdrawalRequest
	NextID   int64
	Err      error

	StatusCalls []StatusCall

	// RecordAge reports when a signing record was created; nil treats
	// every in-flight request as overdue.
	RecordAge func(recordID int64) time.Time
}

// StatusCall records one UpdateStatus invocation.
type StatusCall struct {
	ID     int64
	From   model.WithdrawalStatus
	To     model.WithdrawalStatus
	Reason string
}

// NewWithdrawalRepositoryStub constructs stub repository.
func NewWithdrawalRepositoryStub() *WithdrawalRepositoryStub {
	return &WithdrawalRepositoryStub{Requests: make(map[int64]*model.WithdrawalRequest), NextID: 1}
}

// Create stores a new request.
func (s *WithdrawalRepositoryStub) Create(ctx context.Context, req *model.WithdrawalRequest) (*model.WithdrawalRequest, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *req
	stored.ID = s.NextID
	s.NextID++
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.Requests[stored.ID] = &stored
	return &stored, nil
}

// GetByID fetches a request or returns not found.
func (s *WithdrawalRepositoryStub) GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.Requests[id]; ok {
		copied := *req
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetActiveByUser returns the user's non-terminal request, if any.
func (s *WithdrawalRepositoryStub) GetActiveByUser(ctx context.Context, userID int64) (*model.WithdrawalRequest, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.Requests {
		if req.UserID == userID && !req.Status.Terminal() {
			copied := *req
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// GetBySigningRecord finds the request attached to a signing record.
func (s *WithdrawalRepositoryStub) GetBySigningRecord(ctx context.Context, recordID int64) (*model.WithdrawalRequest, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.Requests {
		if req.SigningRecordID != nil && *req.SigningRecordID == recordID {
			copied := *req
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// ListByUser returns all the user's requests.
func (s *WithdrawalRepositoryStub) ListByUser(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.WithdrawalRequest
	for _, req := range s.Requests {
		if req.UserID == userID {
			result = append(result, *req)
		}
	}
	return result, nil
}

// UpdateStatus performs a compare-and-swap transition.
func (s *WithdrawalRepositoryStub) UpdateStatus(ctx context.Context, id int64, from, to model.WithdrawalStatus, reason string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StatusCalls = append(s.StatusCalls, StatusCall{ID: id, From: from, To: to, Reason: reason})
	req, ok := s.Requests[id]
	if !ok || req.Status != from {
		return domainErrors.ErrInvalidState
	}
	req.Status = to
	if reason != "" {
		req.FailureReason = reason
	}
	req.UpdatedAt = time.Now()
	return nil
}

// SetReservation attaches a ledger hold to the request.
func (s *WithdrawalRepositoryStub) SetReservation(ctx context.Context, id, reservationID int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.Requests[id]; ok {
		req.ReservationID = &reservationID
		return nil
	}
	return domainErrors.ErrNotFound
}

// SetSigningRecord attaches a signing record to the request.
func (s *WithdrawalRepositoryStub) SetSigningRecord(ctx context.Context, id, recordID int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.Requests[id]; ok {
		req.SigningRecordID = &recordID
		return nil
	}
	return domainErrors.ErrNotFound
}

// ListSigningExpired returns in-flight requests whose record predates the deadline.
func (s *WithdrawalRepositoryStub) ListSigningExpired(ctx context.Context, deadline time.Time, limit int) ([]model.WithdrawalRequest, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.WithdrawalRequest
	for _, req := range s.Requests {
		if len(result) >= limit {
			break
		}
		if req.Status != model.WithdrawalSignatureInFlight || req.SigningRecordID == nil {
			continue
		}
		if s.RecordAge == nil || !s.RecordAge(*req.SigningRecordID).After(deadline) {
			result = append(result, *req)
		}
	}
	return result, nil
}
