package payment

import (
	"context"
	"encoding/json"
	"time"
)

// ApplyOutcomeParams describes a reconciliation write. Stores apply it
// atomically, conditioned on the payment still being in ExpectStatus and not
// already carrying EventID.
type ApplyOutcomeParams struct {
	IntentID     string
	ExpectStatus Status
	NewStatus    Status
	EventID      string
	ReceiptURL   string
	Detail       json.RawMessage
	At           time.Time
}

// Store persists payment subjects. Get methods return sentinel.ErrNotFound
// when no record exists.
type Store interface {
	Create(ctx context.Context, subject *Subject) error
	GetByID(ctx context.Context, id string) (*Subject, error)
	GetByIntentID(ctx context.Context, intentID string) (*Subject, error)

	// ApplyOutcome performs the compare-and-set reconciliation write. It
	// returns false without error when the precondition no longer holds.
	ApplyOutcome(ctx context.Context, p ApplyOutcomeParams) (bool, error)
}
