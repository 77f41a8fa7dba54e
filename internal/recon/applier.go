package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/KarimBkr/MyTsango/internal/audit"
	"github.com/KarimBkr/MyTsango/internal/notification"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// ResultState is the terminal state of one event's pipeline run.
type ResultState string

const (
	Applied               ResultState = "applied"
	SkippedDuplicate      ResultState = "skipped_duplicate"
	SkippedUnknownSubject ResultState = "skipped_unknown_subject"
	SkippedUnhandled      ResultState = "skipped_unhandled"
	SkippedNoChange       ResultState = "skipped_no_change"
)

// Result reports what the applier did with an event.
type Result struct {
	State     ResultState
	NewStatus Status
}

// Applier runs the reconciliation pipeline: idempotency check, status
// resolution, atomic persistence, audit, metrics, and best-effort
// notification. Signature verification happens at the transport layer before
// events reach the applier.
type Applier struct {
	subjects SubjectStore
	dedupe   DedupeCache
	audit    *audit.Publisher
	notifier notification.Notifier

	recorders map[Kind]Recorder
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewApplier(
	subjects SubjectStore,
	dedupe DedupeCache,
	auditPub *audit.Publisher,
	notifier notification.Notifier,
	verificationRecorder Recorder,
	paymentRecorder Recorder,
	logger *slog.Logger,
) *Applier {
	return &Applier{
		subjects: subjects,
		dedupe:   dedupe,
		audit:    auditPub,
		notifier: notifier,
		recorders: map[Kind]Recorder{
			KindVerification: verificationRecorder,
			KindPayment:      paymentRecorder,
		},
		logger: logger,
		tracer: otel.Tracer("recon"),
	}
}

// Apply reconciles one normalized event against its subject record. The
// returned error is non-nil only for infrastructure failures; every
// provider-side oddity (unknown subject, duplicate, unhandled type) resolves
// to a skip state so the webhook can be acknowledged.
func (a *Applier) Apply(ctx context.Context, ev Event) (Result, error) {
	rec := a.recorders[ev.Kind]
	start := time.Now()
	defer func() { rec.ObserveDuration("webhook", time.Since(start)) }()
	rec.IncRequest("webhook")

	ctx, span := a.tracer.Start(ctx, "recon.apply", trace.WithAttributes(
		attribute.String("recon.kind", string(ev.Kind)),
		attribute.String("recon.event_type", ev.EventType),
	))
	defer span.End()

	if ev.Outcome == OutcomeNone {
		a.logger.InfoContext(ctx, "unhandled webhook event type",
			"kind", ev.Kind,
			"event_type", ev.EventType,
			"event_id", ev.EventID,
		)
		rec.IncUnhandled(ev.EventType)
		span.SetAttributes(attribute.String("recon.result", string(SkippedUnhandled)))
		return Result{State: SkippedUnhandled}, nil
	}

	// Fast-path duplicate filter. Cache errors degrade to the store check.
	if a.dedupe != nil && ev.EventID != "" {
		seen, err := a.dedupe.Seen(ctx, ev.Kind, ev.EventID)
		if err != nil {
			a.logger.WarnContext(ctx, "dedupe cache probe failed", "error", err)
		} else if seen {
			a.logger.InfoContext(ctx, "webhook already processed",
				"kind", ev.Kind,
				"event_id", ev.EventID,
			)
			span.SetAttributes(attribute.String("recon.result", string(SkippedDuplicate)))
			return Result{State: SkippedDuplicate}, nil
		}
	}

	subject, err := a.subjects.Find(ctx, ev.Kind, ev.SubjectKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Subjects this system never created must not trigger provider
			// retry storms: acknowledge and move on.
			a.logger.WarnContext(ctx, "subject not found for webhook",
				"kind", ev.Kind,
				"subject_key", ev.SubjectKey,
			)
			span.SetAttributes(attribute.String("recon.result", string(SkippedUnknownSubject)))
			return Result{State: SkippedUnknownSubject}, nil
		}
		rec.IncFailure("webhook_error")
		return Result{}, fmt.Errorf("load subject: %w", err)
	}

	// An empty event id cannot be deduplicated; the provider occasionally
	// omits it and we accept the weaker replay protection.
	if ev.EventID != "" && subject.LastEventID == ev.EventID {
		a.logger.InfoContext(ctx, "webhook already processed",
			"kind", ev.Kind,
			"subject_key", ev.SubjectKey,
			"event_id", ev.EventID,
		)
		span.SetAttributes(attribute.String("recon.result", string(SkippedDuplicate)))
		return Result{State: SkippedDuplicate}, nil
	}

	newStatus, changed := Resolve(ev.Kind, subject.Status, ev.Outcome)

	update := Update{
		Kind:         ev.Kind,
		Key:          ev.SubjectKey,
		FromStatus:   subject.Status,
		NewStatus:    newStatus,
		EventID:      ev.EventID,
		ReviewStatus: ev.ReviewStatus,
		RejectReason: ev.RejectReason,
		ReceiptURL:   ev.ReceiptURL,
		Detail:       ev.Detail,
		OccurredAt:   ev.ReceivedAt,
	}

	applied, err := a.subjects.Apply(ctx, update)
	if err != nil {
		rec.IncFailure("webhook_error")
		return Result{}, fmt.Errorf("apply %s event %s: %w", ev.Kind, ev.EventID, err)
	}
	if !applied {
		// A concurrent delivery won the compare-and-set; this one is the
		// duplicate.
		span.SetAttributes(attribute.String("recon.result", string(SkippedDuplicate)))
		return Result{State: SkippedDuplicate}, nil
	}

	a.markProcessed(ctx, ev)

	if !changed {
		// Receipt recorded for idempotency; no side effects beyond that.
		span.SetAttributes(attribute.String("recon.result", string(SkippedNoChange)))
		return Result{State: SkippedNoChange, NewStatus: newStatus}, nil
	}

	a.emitSideEffects(ctx, ev, subject, newStatus)

	a.logger.InfoContext(ctx, "reconciliation applied",
		"kind", ev.Kind,
		"subject_key", ev.SubjectKey,
		"event_id", ev.EventID,
		"status", newStatus,
	)
	span.SetAttributes(
		attribute.String("recon.result", string(Applied)),
		attribute.String("recon.status", string(newStatus)),
	)
	return Result{State: Applied, NewStatus: newStatus}, nil
}

// markProcessed records the event id in the dedupe cache after the
// authoritative write landed. Marking before the write would make a crashed
// apply look like a processed one.
func (a *Applier) markProcessed(ctx context.Context, ev Event) {
	if a.dedupe == nil || ev.EventID == "" {
		return
	}
	if err := a.dedupe.Mark(ctx, ev.Kind, ev.EventID); err != nil {
		a.logger.WarnContext(ctx, "dedupe cache mark failed", "error", err)
	}
}

// emitSideEffects runs the post-transition effects gated on an actual status
// change: audit entry, success metric, and for settled payments a
// best-effort notification.
func (a *Applier) emitSideEffects(ctx context.Context, ev Event, subject *Subject, newStatus Status) {
	rec := a.recorders[ev.Kind]

	entry := audit.Entry{
		UserID:  subject.UserID,
		Action:  auditAction(ev.Kind, newStatus),
		Details: ev.Detail,
	}
	if err := a.audit.Emit(ctx, entry); err != nil {
		// The transition is already durable; losing one audit fanout is
		// logged rather than failing the webhook.
		a.logger.ErrorContext(ctx, "audit emit failed",
			"action", entry.Action,
			"error", err,
		)
	}

	rec.IncSuccess(statusLabel(newStatus))

	if ev.Kind == KindPayment && newStatus == StatusSucceeded {
		if err := a.notifier.PaymentSucceeded(ctx, subject.UserID, subject.RefID); err != nil {
			a.logger.WarnContext(ctx, "payment success notification failed",
				"payment_id", subject.RefID,
				"error", err,
			)
		}
	}
}

func auditAction(kind Kind, status Status) audit.Action {
	if kind == KindVerification {
		switch status {
		case StatusApproved:
			return audit.ActionKYCApproved
		case StatusRejected:
			return audit.ActionKYCRejected
		default:
			return audit.ActionKYCUpdated
		}
	}
	switch status {
	case StatusSucceeded:
		return audit.ActionPaymentSucceeded
	case StatusFailed:
		return audit.ActionPaymentFailed
	default:
		return audit.ActionStripeWebhook
	}
}

func statusLabel(s Status) string {
	switch s {
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusRefunded:
		return "refunded"
	default:
		return "none"
	}
}
