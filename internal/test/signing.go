package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
	"github.com/opendigger/pointgate/internal/domain/model"
)

// SigningRepositoryStub keeps signing records in memory.
type SigningRepositoryStub struct {
	mu      sync.Mutex
	Records map[int64]*model.SigningRecord
	NextID  int64
	Err     error
}

// NewSigningRepositoryStub constructs stub repository.
func NewSigningRepositoryStub() *SigningRepositoryStub {
	return &SigningRepositoryStub{Records: make(map[int64]*model.SigningRecord), NextID: 1}
}

// Create stores a record; duplicate correlators are rejected.
func (s *SigningRepositoryStub) Create(ctx context.Context, record *model.SigningRecord) (*model.SigningRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Records {
		if existing.Correlator == record.Correlator {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	stored := *record
	stored.ID = s.NextID
	s.NextID++
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.Records[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

// GetByID fetches a record by identifier.
func (s *SigningRepositoryStub) GetByID(ctx context.Context, id int64) (*model.SigningRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.Records[id]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, domainErrors.ErrRecordNotFound
}

// GetByCorrelator fetches a record by its callback routing key.
func (s *SigningRepositoryStub) GetByCorrelator(ctx context.Context, correlator string) (*model.SigningRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.Records {
		if record.Correlator == correlator {
			copied := *record
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrRecordNotFound
}

// FindReusable returns the freshest reusable record for a user and card.
func (s *SigningRepositoryStub) FindReusable(ctx context.Context, userID int64, cardFingerprint string, notBefore time.Time) (*model.SigningRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *model.SigningRecord
	for _, record := range s.Records {
		if record.UserID != userID || record.CardFingerprint != cardFingerprint {
			continue
		}
		switch record.Status {
		case model.SigningPending, model.SigningSent, model.SigningSigned:
		default:
			continue
		}
		if !record.CreatedAt.After(notBefore) {
			continue
		}
		if best == nil || record.CreatedAt.After(best.CreatedAt) {
			best = record
		}
	}
	if best == nil {
		return nil, domainErrors.ErrRecordNotFound
	}
	copied := *best
	return &copied, nil
}

// UpdateStatus performs a compare-and-swap transition.
func (s *SigningRepositoryStub) UpdateStatus(ctx context.Context, id int64, from, to model.SigningStatus) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[id]
	if !ok || record.Status != from {
		return domainErrors.ErrInvalidState
	}
	record.Status = to
	record.UpdatedAt = time.Now()
	return nil
}

// MarkSent transitions pending to sent, attaching the provider reference.
func (s *SigningRepositoryStub) MarkSent(ctx context.Context, id int64, providerOrderRef string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[id]
	if !ok || record.Status != model.SigningPending {
		return domainErrors.ErrInvalidState
	}
	record.Status = model.SigningSent
	record.ProviderOrderRef = providerOrderRef
	record.UpdatedAt = time.Now()
	return nil
}

// MarkSigned transitions pending or sent to signed.
func (s *SigningRepositoryStub) MarkSigned(ctx context.Context, id int64, signedAt time.Time) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[id]
	if !ok || (record.Status != model.SigningPending && record.Status != model.SigningSent) {
		return domainErrors.ErrInvalidState
	}
	record.Status = model.SigningSigned
	record.SignedAt = &signedAt
	record.UpdatedAt = time.Now()
	return nil
}
