// Package recon implements the external-event reconciliation engine: it takes
// authenticated webhook deliveries from the identity-verification and payment
// providers, normalizes them into a single event shape, and applies them as
// idempotent status transitions onto locally owned subject records.
package recon

import (
	"encoding/json"
	"time"
)

// Kind identifies which family of subject records an event targets.
type Kind string

const (
	KindVerification Kind = "verification"
	KindPayment      Kind = "payment"
)

// Status is the subject status as seen by the engine. Verification subjects
// use NONE/PENDING/APPROVED/REJECTED; payment subjects use
// PENDING/SUCCEEDED/FAILED/REFUNDED. The string values match the domain
// packages so adapters can cast directly.
type Status string

const (
	StatusNone      Status = "NONE"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// Outcome is the status change a normalized event proposes. OutcomeNone marks
// events the engine acknowledges without mutating anything.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeApproved  Outcome = "APPROVED"
	OutcomeRejected  Outcome = "REJECTED"
	OutcomePending   Outcome = "PENDING"
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

// Event is the canonical internal form of a provider webhook delivery.
type Event struct {
	Kind       Kind
	SubjectKey string // applicant id or payment-intent id
	EventID    string // provider correlation/event id; may be empty for verification events
	EventType  string // provider-native type string, kept for logging and metrics
	Outcome    Outcome

	// Verification-only detail.
	ReviewStatus string
	RejectReason string

	// Payment-only detail.
	ReceiptURL string

	Detail     json.RawMessage
	ReceivedAt time.Time
}

// Subject is the engine's view of a verification or payment record.
type Subject struct {
	Kind        Kind
	Key         string
	RefID       string // internal record id
	UserID      string
	Status      Status
	LastEventID string
}

// Update describes the state transition the applier wants persisted. Stores
// must apply it atomically, conditioned on the subject still being in
// FromStatus and not already carrying EventID (compare-and-set).
type Update struct {
	Kind       Kind
	Key        string
	FromStatus Status
	NewStatus  Status
	EventID    string

	ReviewStatus string
	RejectReason string
	ReceiptURL   string
	Detail       json.RawMessage
	OccurredAt   time.Time
}
