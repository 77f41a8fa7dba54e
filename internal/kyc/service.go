package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/KarimBkr/MyTsango/internal/audit"
	"github.com/KarimBkr/MyTsango/internal/kyc/metrics"
	"github.com/KarimBkr/MyTsango/pkg/apperrors"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// StartResult is returned to the mobile client so it can launch the
// provider's verification SDK.
type StartResult struct {
	ApplicantID string
	Token       string
	Status      Status
}

// StatusResult is the read-only projection served to clients.
type StatusResult struct {
	Status      Status
	ApplicantID string
	UpdatedAt   time.Time
}

// Service owns the verification lifecycle: it creates subject records and
// serves status reads. Status mutations happen exclusively in the
// reconciliation engine.
type Service struct {
	store    Store
	provider Provider
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(
	st Store,
	provider Provider,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    st,
		provider: provider,
		audit:    auditPub,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kyc"),
	}
}

// Start begins verification for a user. An existing applicant id is reused -
// the mapping is assigned at most once - so the call is safe to retry.
func (s *Service) Start(ctx context.Context, userID string) (*StartResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration("start", time.Since(start)) }()
	s.metrics.IncRequest("start")

	ctx, span := s.tracer.Start(ctx, "kyc.start")
	defer span.End()

	subject, err := s.store.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.metrics.IncFailure("start_error")
		return nil, fmt.Errorf("load verification subject: %w", err)
	}

	if subject == nil {
		applicantID, err := s.provider.CreateApplicant(ctx, userID)
		if err != nil {
			s.metrics.IncFailure("start_error")
			return nil, s.providerError("create applicant", err)
		}

		now := time.Now()
		subject = &Subject{
			ID:           uuid.New(),
			UserID:       userID,
			ApplicantID:  applicantID,
			Status:       StatusPending,
			ReviewStatus: "init",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.Create(ctx, subject); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Concurrent start won; reuse its record.
				subject, err = s.store.GetByUserID(ctx, userID)
				if err != nil {
					s.metrics.IncFailure("start_error")
					return nil, fmt.Errorf("reload verification subject: %w", err)
				}
			} else {
				s.metrics.IncFailure("start_error")
				return nil, fmt.Errorf("create verification subject: %w", err)
			}
		} else {
			details, _ := json.Marshal(map[string]string{"applicantId": subject.ApplicantID})
			if err := s.audit.Emit(ctx, audit.Entry{
				UserID:  userID,
				Action:  audit.ActionKYCStarted,
				Details: details,
			}); err != nil {
				s.logger.ErrorContext(ctx, "audit emit failed", "action", audit.ActionKYCStarted, "error", err)
			}
		}
	}

	token, err := s.provider.CreateAccessToken(ctx, userID)
	if err != nil {
		s.metrics.IncFailure("start_error")
		return nil, s.providerError("create access token", err)
	}

	s.metrics.IncSuccess("started")
	s.logger.InfoContext(ctx, "verification started",
		"user_id", userID,
		"applicant_id", subject.ApplicantID,
	)

	return &StartResult{
		ApplicantID: subject.ApplicantID,
		Token:       token,
		Status:      subject.Status,
	}, nil
}

// Status returns the user's verification state. A user who never started
// verification gets StatusNone, not an error.
func (s *Service) Status(ctx context.Context, userID string) (*StatusResult, error) {
	s.metrics.IncRequest("status")

	subject, err := s.store.GetByUserID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &StatusResult{Status: StatusNone, UpdatedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load verification subject: %w", err)
	}

	return &StatusResult{
		Status:      subject.Status,
		ApplicantID: subject.ApplicantID,
		UpdatedAt:   subject.UpdatedAt,
	}, nil
}

// providerError maps collaborator failures onto a retryable coded error for
// the HTTP layer. Initiation is synchronous and user-facing; the client may
// retry safely because applicant assignment is idempotent.
func (s *Service) providerError(op string, err error) error {
	s.logger.Error("identity provider call failed", "op", op, "error", err)
	return apperrors.Wrap(apperrors.CodeUnavailable, "identity provider unavailable", err)
}
