// Package handler is the thin HTTP layer for the payment module. It
// delegates to the lifecycle service and the reconciliation applier without
// embedding business logic.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/KarimBkr/MyTsango/internal/payment"
	"github.com/KarimBkr/MyTsango/internal/payment/provider"
	"github.com/KarimBkr/MyTsango/internal/platform/middleware"
	"github.com/KarimBkr/MyTsango/internal/recon"
	"github.com/KarimBkr/MyTsango/pkg/apperrors"
)

// SignatureHeader carries Stripe's signed-event header.
const SignatureHeader = "Stripe-Signature"

const maxWebhookBody = 1 << 20

type createRequest struct {
	Amount int64 `json:"amount"`
}

type Handler struct {
	service  *payment.Service
	applier  *recon.Applier
	provider *provider.Client
	metrics  recon.Recorder
	logger   *slog.Logger
}

func New(service *payment.Service, applier *recon.Applier, prov *provider.Client, m recon.Recorder, logger *slog.Logger) *Handler {
	return &Handler{service: service, applier: applier, provider: prov, metrics: m, logger: logger}
}

// Register mounts the authenticated client-facing routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/circles/{circleID}/payments", h.handleCreate)
	r.Get("/payments/{paymentID}", h.handleStatus)
}

// RegisterWebhooks mounts the public webhook route. Kept separate so the
// router can skip auth middleware for it.
func (h *Handler) RegisterWebhooks(r chi.Router) {
	r.Post("/webhooks/stripe", h.handleWebhook)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthorized, "missing user identity"))
		return
	}
	circleID := chi.URLParam(r, "circleID")
	if circleID == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidInput, "missing circle id"))
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidInput, "malformed request body"))
		return
	}

	result, err := h.service.Create(r.Context(), circleID, userID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"paymentId":    result.PaymentID.String(),
		"clientSecret": result.ClientSecret,
		"status":       string(result.Status),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthorized, "missing user identity"))
		return
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidInput, "invalid payment id"))
		return
	}

	result, err := h.service.Status(r.Context(), paymentID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{
		"paymentId": result.PaymentID.String(),
		"circleId":  result.CircleID,
		"amount":    result.AmountCents,
		"status":    string(result.Status),
		"updatedAt": result.UpdatedAt.Format(time.RFC3339),
	}
	if result.ReceiptURL != "" {
		resp["receiptUrl"] = result.ReceiptURL
	}
	if result.ConfirmedAt != nil {
		resp["confirmedAt"] = result.ConfirmedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWebhook authenticates and applies a payment-provider event. The
// provider only sees 200 (accepted, including no-ops and duplicates), 400 on
// an unverifiable or malformed envelope, or 500 on an apply failure.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.rejectWebhook(w, "unreadable_body",
			apperrors.New(apperrors.CodeInvalidInput, "unreadable body"))
		return
	}

	event, err := h.provider.VerifyEvent(body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.logger.WarnContext(r.Context(), "stripe webhook rejected", "error", err)
		h.rejectWebhook(w, "invalid_signature",
			apperrors.New(apperrors.CodeInvalidInput, "invalid webhook event"))
		return
	}

	intent, err := provider.IntentFromEvent(event)
	if err != nil {
		h.rejectWebhook(w, "malformed_event",
			apperrors.New(apperrors.CodeInvalidInput, "malformed event data"))
		return
	}

	normalized := recon.NormalizePayment(recon.PaymentProviderEvent{
		EventID:    event.ID,
		EventType:  string(event.Type),
		IntentID:   intent.ID,
		ReceiptURL: provider.ReceiptURLFromIntent(intent),
		Raw:        body,
	}, time.Now())

	if _, err := h.applier.Apply(r.Context(), normalized); err != nil {
		h.logger.ErrorContext(r.Context(), "webhook reconciliation failed", "error", err)
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "webhook processing failed", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// rejectWebhook records a delivery turned away before reconciliation.
// Accepted deliveries are counted inside the pipeline.
func (h *Handler) rejectWebhook(w http.ResponseWriter, reason string, err error) {
	h.metrics.IncRequest("webhook")
	h.metrics.IncFailure(reason)
	writeError(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": string(code)})
}
