// Package handler is the thin HTTP layer for the verification module. It
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

	"github.com/KarimBkr/MyTsango/internal/kyc"
	"github.com/KarimBkr/MyTsango/internal/platform/middleware"
	"github.com/KarimBkr/MyTsango/internal/recon"
	"github.com/KarimBkr/MyTsango/internal/recon/signature"
	"github.com/KarimBkr/MyTsango/pkg/apperrors"
)

// SignatureHeader carries the provider's hex HMAC-SHA256 digest of the raw
// webhook body.
const SignatureHeader = "X-Payload-Digest"

const maxWebhookBody = 1 << 20

type Handler struct {
	service  *kyc.Service
	applier  *recon.Applier
	verifier *signature.Verifier
	metrics  recon.Recorder
	logger   *slog.Logger
}

func New(service *kyc.Service, applier *recon.Applier, verifier *signature.Verifier, m recon.Recorder, logger *slog.Logger) *Handler {
	return &Handler{service: service, applier: applier, verifier: verifier, metrics: m, logger: logger}
}

// Register mounts the authenticated client-facing routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/kyc/start", h.handleStart)
	r.Get("/kyc/status", h.handleStatus)
}

// RegisterWebhooks mounts the public webhook route. Kept separate so the
// router can skip auth middleware for it.
func (h *Handler) RegisterWebhooks(r chi.Router) {
	r.Post("/webhooks/sumsub", h.handleWebhook)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthorized, "missing user identity"))
		return
	}

	result, err := h.service.Start(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"applicantId": result.ApplicantID,
		"token":       result.Token,
		"status":      string(result.Status),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthorized, "missing user identity"))
		return
	}

	result, err := h.service.Status(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      string(result.Status),
		"applicantId": result.ApplicantID,
		"updatedAt":   result.UpdatedAt.Format(time.RFC3339),
	})
}

// handleWebhook authenticates and applies an identity-provider event. The
// provider only sees 200 (accepted, including no-ops and duplicates) or 401
// on signature failure.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.rejectWebhook(w, "unreadable_body",
			apperrors.New(apperrors.CodeInvalidInput, "unreadable body"))
		return
	}

	if !h.verifier.Verify(body, r.Header.Get(SignatureHeader)) {
		h.logger.WarnContext(r.Context(), "invalid webhook signature")
		h.rejectWebhook(w, "invalid_signature",
			apperrors.New(apperrors.CodeUnauthorized, "invalid webhook signature"))
		return
	}

	var payload recon.VerificationWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		h.rejectWebhook(w, "malformed_payload",
			apperrors.New(apperrors.CodeInvalidInput, "malformed webhook payload"))
		return
	}
	if payload.ApplicantID == "" {
		h.rejectWebhook(w, "malformed_payload",
			apperrors.New(apperrors.CodeInvalidInput, "missing applicantId"))
		return
	}

	event := recon.NormalizeVerification(payload, body, time.Now())
	if _, err := h.applier.Apply(r.Context(), event); err != nil {
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
