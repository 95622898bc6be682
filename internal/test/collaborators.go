package test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/opendigger/pointgate/internal/domain/model"
)

// ProviderStub imitates the signing provider client.
type ProviderStub struct {
	mu sync.Mutex

	TokenFn func(ctx context.Context) (string, error)
	SignFn  func(ctx context.Context, pii model.PIISnapshot, correlator string) (string, error)

	SignCalls []string
}

// AccessToken returns a fixed token unless overridden.
func (s *ProviderStub) AccessToken(ctx context.Context) (string, error) {
	if s.TokenFn != nil {
		return s.TokenFn(ctx)
	}
	return "token", nil
}

// SignWithTemplate records the correlator and returns a deterministic order ref.
func (s *ProviderStub) SignWithTemplate(ctx context.Context, pii model.PIISnapshot, correlator string) (string, error) {
	s.mu.Lock()
	s.SignCalls = append(s.SignCalls, correlator)
	s.mu.Unlock()
	if s.SignFn != nil {
		return s.SignFn(ctx, pii, correlator)
	}
	return "order-" + correlator, nil
}

// Calls returns the recorded correlators.
func (s *ProviderStub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.SignCalls...)
}

// PayoutStub imitates the payout collaborator.
type PayoutStub struct {
	mu sync.Mutex

	TransferFn func(ctx context.Context, req *model.WithdrawalRequest) error

	Transfers []int64
}

// Transfer records the withdrawal id and delegates to the override if set.
func (s *PayoutStub) Transfer(ctx context.Context, req *model.WithdrawalRequest) error {
	s.mu.Lock()
	s.Transfers = append(s.Transfers, req.ID)
	s.mu.Unlock()
	if s.TransferFn != nil {
		return s.TransferFn(ctx, req)
	}
	return nil
}

// Count returns the number of recorded transfers.
func (s *PayoutStub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Transfers)
}

// StrategyStub imitates the service token strategy.
type StrategyStub struct {
	Caller string
	Err    error
}

func (s StrategyStub) IssueToken(caller string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return "token-" + caller, nil
}

func (s StrategyStub) ParseToken(string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Caller, nil
}

func (s StrategyStub) Name() string { return "stub" }

// NewLogger returns a logger that discards output.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
