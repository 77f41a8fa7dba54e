package kyc

import (
	"context"
	"encoding/json"
	"time"
)

// ApplyReviewParams describes a reconciliation write. Stores apply it
// atomically, conditioned on the subject still being in ExpectStatus and not
// already carrying EventID.
type ApplyReviewParams struct {
	ApplicantID  string
	ExpectStatus Status
	NewStatus    Status
	ReviewStatus string
	ReviewResult json.RawMessage
	RejectReason string
	EventID      string
	At           time.Time
}

// Store persists verification subjects. Get methods return
// sentinel.ErrNotFound when no subject exists.
type Store interface {
	Create(ctx context.Context, subject *Subject) error
	GetByUserID(ctx context.Context, userID string) (*Subject, error)
	GetByApplicantID(ctx context.Context, applicantID string) (*Subject, error)

	// ApplyReview performs the compare-and-set reconciliation write. It
	// returns false without error when the precondition no longer holds.
	ApplyReview(ctx context.Context, p ApplyReviewParams) (bool, error)
}
