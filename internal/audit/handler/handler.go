// Package handler exposes the caller's audit trail over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KarimBkr/MyTsango/internal/audit"
	"github.com/KarimBkr/MyTsango/internal/platform/middleware"
	"github.com/KarimBkr/MyTsango/pkg/apperrors"
)

type Handler struct {
	publisher *audit.Publisher
	logger    *slog.Logger
}

func New(publisher *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{publisher: publisher, logger: logger}
}

// Register mounts the authenticated audit routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleList)
}

type entryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthorized, "missing user identity"))
		return
	}

	entries, err := h.publisher.List(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list audit entries failed", "error", err)
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "list audit entries failed", err))
		return
	}

	resp := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, entryResponse{
			ID:        e.ID.String(),
			Action:    string(e.Action),
			Details:   e.Details,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": resp})
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
