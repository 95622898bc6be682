package test

import (
	"context"
	"sync"

	"github.com/opendigger/pointgate/internal/domain/model"
)

// WorkerFacadeStub feeds the maintenance worker scripted batches of overdue
// withdrawals and records what it processed.
type WorkerFacadeStub struct {
	sync.Mutex

	// Batches are returned one per fetch; once drained fetches return nil.
	Batches [][]model.WithdrawalRequest

	SweepFn  func(ctx context.Context) (int64, error)
	ExpireFn func(ctx context.Context, req *model.WithdrawalRequest) error

	Sweeps  int
	Expired []int64
}

func (s *WorkerFacadeStub) SweepExpiredGrants(ctx context.Context) (int64, error) {
	s.Lock()
	s.Sweeps++
	s.Unlock()
	if s.SweepFn != nil {
		return s.SweepFn(ctx)
	}
	return 0, nil
}

func (s *WorkerFacadeStub) ExpiredSigningWithdrawals(ctx context.Context, limit int) ([]model.WithdrawalRequest, error) {
	s.Lock()
	defer s.Unlock()
	if len(s.Batches) == 0 {
		return nil, nil
	}
	batch := s.Batches[0]
	s.Batches = s.Batches[1:]
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

func (s *WorkerFacadeStub) ExpireWithdrawalSignature(ctx context.Context, req *model.WithdrawalRequest) error {
	s.Lock()
	s.Expired = append(s.Expired, req.ID)
	s.Unlock()
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, req)
	}
	return nil
}

// ExpiredIDs returns a copy of the processed withdrawal ids.
func (s *WorkerFacadeStub) ExpiredIDs() []int64 {
	s.Lock()
	defer s.Unlock()
	return append([]int64(nil), s.Expired...)
}
