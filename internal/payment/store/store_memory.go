package store

import (
	"context"
	"sync"

	"github.com/KarimBkr/MyTsango/internal/payment"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// InMemoryStore keeps payment subjects in memory for tests and local runs.
type InMemoryStore struct {
	mu       sync.Mutex
	byID     map[string]*payment.Subject
	byIntent map[string]*payment.Subject
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[string]*payment.Subject),
		byIntent: make(map[string]*payment.Subject),
	}
}

func (s *InMemoryStore) Create(_ context.Context, subject *payment.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byIntent[subject.IntentID]; exists {
		return sentinel.ErrConflict
	}
	cp := *subject
	s.byID[cp.ID.String()] = &cp
	s.byIntent[cp.IntentID] = &cp
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*payment.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *subject
	return &cp, nil
}

func (s *InMemoryStore) GetByIntentID(_ context.Context, intentID string) (*payment.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.byIntent[intentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *subject
	return &cp, nil
}

func (s *InMemoryStore) ApplyOutcome(_ context.Context, p payment.ApplyOutcomeParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject, ok := s.byIntent[p.IntentID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if subject.Status != p.ExpectStatus {
		return false, nil
	}
	if p.EventID != "" && subject.LastEventID == p.EventID {
		return false, nil
	}

	// A status-preserving replay only records idempotency bookkeeping; a
	// settled payment keeps its confirmation time and receipt.
	if p.NewStatus != p.ExpectStatus {
		subject.Status = p.NewStatus
		if p.ReceiptURL != "" {
			subject.ReceiptURL = p.ReceiptURL
		}
		if p.NewStatus == payment.StatusSucceeded {
			at := p.At
			subject.ConfirmedAt = &at
		}
	}
	if p.EventID != "" {
		subject.LastEventID = p.EventID
	}
	subject.UpdatedAt = p.At
	return true, nil
}
