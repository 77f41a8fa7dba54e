// Package kyc owns identity-verification subjects: the records created when
// a user starts verification and mutated exclusively by the reconciliation
// engine as provider review events arrive.
package kyc

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status of a verification subject.
type Status string

const (
	StatusNone     Status = "NONE"
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Subject is a user's verification record. ApplicantID is issued by the
// provider exactly once and never changes afterwards. Subjects are never
// deleted; they are retained for audit.
type Subject struct {
	ID          uuid.UUID
	UserID      string
	ApplicantID string
	Status      Status

	ReviewStatus string
	ReviewResult json.RawMessage
	RejectReason string

	// LastEventID is the idempotency marker: the provider correlation id of
	// the last applied webhook.
	LastEventID string

	ApprovedAt *time.Time
	RejectedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
