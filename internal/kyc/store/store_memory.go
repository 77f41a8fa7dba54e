package store

import (
	"context"
	"sync"

	"github.com/KarimBkr/MyTsango/internal/kyc"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// InMemoryStore keeps verification subjects in memory for tests and local
// runs. The mutex gives it the same per-subject serialization the postgres
// store gets from conditional updates.
type InMemoryStore struct {
	mu          sync.Mutex
	byApplicant map[string]*kyc.Subject
	byUser      map[string]*kyc.Subject
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byApplicant: make(map[string]*kyc.Subject),
		byUser:      make(map[string]*kyc.Subject),
	}
}

func (s *InMemoryStore) Create(_ context.Context, subject *kyc.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUser[subject.UserID]; exists {
		return sentinel.ErrConflict
	}
	cp := *subject
	s.byApplicant[cp.ApplicantID] = &cp
	s.byUser[cp.UserID] = &cp
	return nil
}

func (s *InMemoryStore) GetByUserID(_ context.Context, userID string) (*kyc.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *subject
	return &cp, nil
}

func (s *InMemoryStore) GetByApplicantID(_ context.Context, applicantID string) (*kyc.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.byApplicant[applicantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *subject
	return &cp, nil
}

func (s *InMemoryStore) ApplyReview(_ context.Context, p kyc.ApplyReviewParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject, ok := s.byApplicant[p.ApplicantID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if subject.Status != p.ExpectStatus {
		return false, nil
	}
	if p.EventID != "" && subject.LastEventID == p.EventID {
		return false, nil
	}

	// A status-preserving replay only records idempotency bookkeeping; the
	// settled review fields stay as the winning event left them.
	if p.NewStatus != p.ExpectStatus {
		subject.Status = p.NewStatus
		subject.ReviewStatus = p.ReviewStatus
		subject.ReviewResult = p.ReviewResult
		subject.RejectReason = p.RejectReason
		switch p.NewStatus {
		case kyc.StatusApproved:
			at := p.At
			subject.ApprovedAt = &at
		case kyc.StatusRejected:
			at := p.At
			subject.RejectedAt = &at
		}
	}
	if p.EventID != "" {
		subject.LastEventID = p.EventID
	}
	subject.UpdatedAt = p.At
	return true, nil
}
