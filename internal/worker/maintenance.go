package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opendigger/pointgate/internal/domain/model"
)

// PointsFacade exposes the subset of application functionality required by the worker.
type PointsFacade interface {
	SweepExpiredGrants(ctx context.Context) (int64, error)
	ExpiredSigningWithdrawals(ctx context.Context, limit int) ([]model.WithdrawalRequest, error)
	ExpireWithdrawalSignature(ctx context.Context, req *model.WithdrawalRequest) error
}

// Maintenance periodically expires stale grants and overdue signing windows,
// fanning the overdue withdrawals out to a worker pool.
type Maintenance struct {
	facade       PointsFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.WithdrawalRequest
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewMaintenance constructs the maintenance worker pool.
func NewMaintenance(facade PointsFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *Maintenance {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Maintenance{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.WithdrawalRequest, batchSize*workers),
	}
}

// Start launches background processing.
func (m *Maintenance) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker(runCtx)
	}

	m.wg.Add(1)
	go m.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Maintenance) dispatch(ctx context.Context) {
	defer m.wg.Done()
	defer close(m.jobs)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
			m.fetchAndDispatch(ctx)
		}
	}
}

func (m *Maintenance) sweep(ctx context.Context) {
	expired, err := m.facade.SweepExpiredGrants(ctx)
	if err != nil {
		m.logger.Error("grant expiry sweep failed", slog.String("error", err.Error()))
		return
	}
	if expired > 0 {
		m.logger.Info("expired grants swept", slog.Int64("points", expired))
	}
}

func (m *Maintenance) fetchAndDispatch(ctx context.Context) {
	overdue, err := m.facade.ExpiredSigningWithdrawals(ctx, m.batchSize)
	if err != nil {
		m.logger.Error("fetch overdue signings failed", slog.String("error", err.Error()))
		return
	}
	for _, req := range overdue {
		select {
		case <-ctx.Done():
			return
		case m.jobs <- req:
		}
	}
}

func (m *Maintenance) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-m.jobs:
			if !ok {
				return
			}
			m.handle(ctx, req)
		}
	}
}

func (m *Maintenance) handle(ctx context.Context, req model.WithdrawalRequest) {
	if err := m.facade.ExpireWithdrawalSignature(ctx, &req); err != nil {
		m.logger.Error("expire signing window failed",
			slog.Int64("withdrawal_id", req.ID),
			slog.String("error", err.Error()))
		return
	}
	m.logger.Info("withdrawal signing window expired",
		slog.Int64("withdrawal_id", req.ID),
		slog.Int64("user_id", req.UserID))
}
