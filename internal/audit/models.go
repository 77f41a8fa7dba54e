package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action labels the domain event an entry records. Keep labels stable; they
// are queried by compliance tooling and dashboards.
type Action string

const (
	ActionKYCStarted       Action = "kyc_started"
	ActionKYCApproved      Action = "kyc_approved"
	ActionKYCRejected      Action = "kyc_rejected"
	ActionKYCUpdated       Action = "kyc_updated"
	ActionPaymentCreated   Action = "payment_created"
	ActionPaymentSucceeded Action = "payment_succeeded"
	ActionPaymentFailed    Action = "payment_failed"
	ActionStripeWebhook    Action = "stripe_webhook"
)

// Entry is an immutable append-only audit record. UserID is empty for
// subject-less system events such as unattributed webhooks.
type Entry struct {
	ID        uuid.UUID
	UserID    string
	Action    Action
	Details   json.RawMessage
	CreatedAt time.Time
}
