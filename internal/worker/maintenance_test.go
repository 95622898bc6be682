package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/opendigger/pointgate/internal/domain/model"
	testhelpers "github.com/opendigger/pointgate/internal/test"
)

func TestNewMaintenanceDefaults(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := NewMaintenance(&testhelpers.WorkerFacadeStub{}, time.Second, 0, 0, logger)
	if m.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", m.batchSize)
	}
	if m.workers != 1 {
		t.Fatalf("expected workers default to 1, got %d", m.workers)
	}
}

func TestMaintenanceExpiresOverdueSignings(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := &testhelpers.WorkerFacadeStub{
		Batches: [][]model.WithdrawalRequest{{
			{ID: 1, UserID: 10, Status: model.WithdrawalSignatureInFlight},
			{ID: 2, UserID: 11, Status: model.WithdrawalSignatureInFlight},
		}},
	}
	m := NewMaintenance(facade, 10*time.Millisecond, 4, 2, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	deadline := time.After(500 * time.Millisecond)
	for {
		if len(facade.ExpiredIDs()) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for overdue signings to expire")
		case <-time.After(10 * time.Millisecond):
		}
	}

	m.Stop()
	ids := facade.ExpiredIDs()
	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected withdrawals 1 and 2 expired, got %v", ids)
	}
}

func TestMaintenanceSweepsGrants(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := &testhelpers.WorkerFacadeStub{}
	m := NewMaintenance(facade, 10*time.Millisecond, 1, 1, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	deadline := time.After(500 * time.Millisecond)
	for {
		facade.Lock()
		swept := facade.Sweeps > 0
		facade.Unlock()
		if swept {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for grant sweep")
		case <-time.After(10 * time.Millisecond):
		}
	}
	m.Stop()
}

func TestMaintenanceSurvivesFacadeErrors(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := &testhelpers.WorkerFacadeStub{
		Batches: [][]model.WithdrawalRequest{
			{{ID: 1, Status: model.WithdrawalSignatureInFlight}},
			{{ID: 2, Status: model.WithdrawalSignatureInFlight}},
		},
		SweepFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New("db unavailable")
		},
		ExpireFn: func(ctx context.Context, req *model.WithdrawalRequest) error {
			if req.ID == 1 {
				return errors.New("transient")
			}
			return nil
		},
	}
	m := NewMaintenance(facade, 10*time.Millisecond, 1, 1, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	deadline := time.After(500 * time.Millisecond)
	for {
		ids := facade.ExpiredIDs()
		if len(ids) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout, processed only %v", facade.ExpiredIDs())
		case <-time.After(10 * time.Millisecond):
		}
	}
	m.Stop()
}

func TestMaintenanceStopIsIdempotent(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := NewMaintenance(&testhelpers.WorkerFacadeStub{}, 10*time.Millisecond, 1, 1, logger)

	ctx := context.Background()
	m.Start(ctx)
	m.Stop()
	m.Stop()
}
