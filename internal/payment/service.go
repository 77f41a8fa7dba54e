package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/KarimBkr/MyTsango/internal/audit"
	"github.com/KarimBkr/MyTsango/internal/payment/metrics"
	"github.com/KarimBkr/MyTsango/pkg/apperrors"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// CreateResult is returned to the mobile client so it can confirm the
// intent with the provider's payment sheet.
type CreateResult struct {
	PaymentID    uuid.UUID
	IntentID     string
	ClientSecret string
	Status       Status
}

// StatusResult is the read-only projection served to clients.
type StatusResult struct {
	PaymentID   uuid.UUID
	CircleID    string
	AmountCents int64
	Status      Status
	ReceiptURL  string
	ConfirmedAt *time.Time
	UpdatedAt   time.Time
}

// Service owns the payment lifecycle: it creates provider intents and local
// subject records, and serves status reads. Status mutations happen
// exclusively in the reconciliation engine.
type Service struct {
	store     Store
	provider  Provider
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	minAmount int64
	maxAmount int64
}

func NewService(
	st Store,
	provider Provider,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	minAmount, maxAmount int64,
) *Service {
	return &Service{
		store:     st,
		provider:  provider,
		audit:     auditPub,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("payment"),
		minAmount: minAmount,
		maxAmount: maxAmount,
	}
}

// Create validates the amount, creates a provider intent and records the
// payment as pending. Amounts are given in whole euros and stored in cents.
// Validation happens before any provider call so a rejected amount never
// leaves a dangling intent.
func (s *Service) Create(ctx context.Context, circleID, userID string, amountEuros int64) (*CreateResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration("create", time.Since(start)) }()
	s.metrics.IncRequest("create")

	ctx, span := s.tracer.Start(ctx, "payment.create")
	defer span.End()

	if amountEuros < s.minAmount || amountEuros > s.maxAmount {
		s.metrics.IncFailure("invalid_amount")
		return nil, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("amount must be between %d and %d euros", s.minAmount, s.maxAmount))
	}
	amountCents := amountEuros * 100

	intent, err := s.provider.CreateIntent(ctx, amountCents,
		fmt.Sprintf("Circle %s contribution", circleID),
		map[string]string{"circleId": circleID, "userId": userID},
	)
	if err != nil {
		s.metrics.IncFailure("create_error")
		s.logger.Error("payment provider call failed", "op", "create intent", "error", err)
		return nil, apperrors.Wrap(apperrors.CodeUnavailable, "payment provider unavailable", err)
	}

	now := time.Now()
	subject := &Subject{
		ID:          uuid.New(),
		CircleID:    circleID,
		UserID:      userID,
		IntentID:    intent.ID,
		AmountCents: amountCents,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, subject); err != nil {
		s.metrics.IncFailure("create_error")
		return nil, fmt.Errorf("create payment record: %w", err)
	}

	details, _ := json.Marshal(map[string]string{
		"paymentId": subject.ID.String(),
		"circleId":  circleID,
		"amount":    strconv.FormatInt(amountCents, 10),
	})
	if err := s.audit.Emit(ctx, audit.Entry{
		UserID:  userID,
		Action:  audit.ActionPaymentCreated,
		Details: details,
	}); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", audit.ActionPaymentCreated, "error", err)
	}

	s.metrics.IncSuccess("created")
	s.logger.InfoContext(ctx, "payment created",
		"payment_id", subject.ID,
		"circle_id", circleID,
		"amount_cents", amountCents,
	)

	return &CreateResult{
		PaymentID:    subject.ID,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       subject.Status,
	}, nil
}

// Status returns a payment's state. Reads are scoped to the owning user.
func (s *Service) Status(ctx context.Context, paymentID uuid.UUID, userID string) (*StatusResult, error) {
	s.metrics.IncRequest("status")

	subject, err := s.store.GetByID(ctx, paymentID.String())
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if subject.UserID != userID {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
	}

	return &StatusResult{
		PaymentID:   subject.ID,
		CircleID:    subject.CircleID,
		AmountCents: subject.AmountCents,
		Status:      subject.Status,
		ReceiptURL:  subject.ReceiptURL,
		ConfirmedAt: subject.ConfirmedAt,
		UpdatedAt:   subject.UpdatedAt,
	}, nil
}
