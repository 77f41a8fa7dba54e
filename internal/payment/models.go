// Package payment owns circle-contribution payments: records created when a
// client requests a payment and settled exclusively by the reconciliation
// engine as provider events arrive.
package payment

import (
	"time"

	"github.com/google/uuid"
)

// Status of a payment subject.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// Subject is one contribution payment. IntentID is issued by the payment
// provider at creation and never changes; AmountCents is fixed at creation.
type Subject struct {
	ID       uuid.UUID
	CircleID string
	UserID   string
	IntentID string

	// AmountCents is the contribution amount in minor currency units.
	AmountCents int64
	Status      Status

	// LastEventID is the idempotency marker: the provider event id of the
	// last applied webhook.
	LastEventID string

	ReceiptURL  string
	ConfirmedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
