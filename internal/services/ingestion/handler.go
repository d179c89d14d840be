package ingestion

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

// Handler handles HTTP requests for the ingestion service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new ingestion HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("handler", "ingestion"),
	}
}

// HandleIngest handles POST /api/v1/events
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	resp, err := h.service.Ingest(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation), errors.Is(err, outbox.ErrInvalidEvent):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to ingest event", "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to record event")
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, resp)
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
