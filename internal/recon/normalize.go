package recon

import (
	"encoding/json"
	"strings"
	"time"
)

// Provider sentinels for the identity-verification review answer.
const (
	reviewAnswerAccept  = "GREEN"
	reviewAnswerReject  = "RED"
	reviewStatusPending = "pending"
)

// Payment provider event types the engine models. Everything else is
// acknowledged as a no-op.
const (
	EventTypePaymentSucceeded = "payment_intent.succeeded"
	EventTypePaymentFailed    = "payment_intent.payment_failed"
)

// VerificationWebhook is the decoded identity-provider payload.
type VerificationWebhook struct {
	ApplicantID   string        `json:"applicantId"`
	InspectionID  string        `json:"inspectionId,omitempty"`
	CorrelationID string        `json:"correlationId,omitempty"`
	Type          string        `json:"type,omitempty"`
	ReviewStatus  string        `json:"reviewStatus,omitempty"`
	ReviewResult  *ReviewResult `json:"reviewResult,omitempty"`
	CreatedAt     string        `json:"createdAt,omitempty"`
}

// ReviewResult carries the provider's verdict on an applicant review.
type ReviewResult struct {
	ReviewAnswer     string   `json:"reviewAnswer,omitempty"`
	RejectLabels     []string `json:"rejectLabels,omitempty"`
	ReviewRejectType string   `json:"reviewRejectType,omitempty"`
}

// PaymentProviderEvent is the provider-neutral form of a payment webhook,
// built by the payment handler after native signature verification.
type PaymentProviderEvent struct {
	EventID    string
	EventType  string
	IntentID   string
	ReceiptURL string
	Raw        json.RawMessage
}

// NormalizeVerification maps an identity-provider webhook onto the canonical
// event shape. Review answers outside the accept/reject sentinels and review
// states other than "pending" yield OutcomeNone, handled downstream as a
// no-op.
func NormalizeVerification(w VerificationWebhook, raw json.RawMessage, receivedAt time.Time) Event {
	ev := Event{
		Kind:         KindVerification,
		SubjectKey:   w.ApplicantID,
		EventID:      w.CorrelationID,
		EventType:    w.Type,
		Outcome:      OutcomeNone,
		ReviewStatus: w.ReviewStatus,
		Detail:       raw,
		ReceivedAt:   receivedAt,
	}

	switch {
	case w.ReviewResult != nil && w.ReviewResult.ReviewAnswer == reviewAnswerAccept:
		ev.Outcome = OutcomeApproved
	case w.ReviewResult != nil && w.ReviewResult.ReviewAnswer == reviewAnswerReject:
		ev.Outcome = OutcomeRejected
		ev.RejectReason = strings.Join(w.ReviewResult.RejectLabels, ", ")
	case w.ReviewStatus == reviewStatusPending:
		ev.Outcome = OutcomePending
	}
	return ev
}

// NormalizePayment maps a payment-provider event onto the canonical event
// shape. Unmodeled event types yield OutcomeNone.
func NormalizePayment(p PaymentProviderEvent, receivedAt time.Time) Event {
	ev := Event{
		Kind:       KindPayment,
		SubjectKey: p.IntentID,
		EventID:    p.EventID,
		EventType:  p.EventType,
		Outcome:    OutcomeNone,
		ReceiptURL: p.ReceiptURL,
		Detail:     p.Raw,
		ReceivedAt: receivedAt,
	}

	switch p.EventType {
	case EventTypePaymentSucceeded:
		ev.Outcome = OutcomeSucceeded
	case EventTypePaymentFailed:
		ev.Outcome = OutcomeFailed
	}
	return ev
}
