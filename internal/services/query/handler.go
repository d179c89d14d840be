package query

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

// Handler handles HTTP requests for the query service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new query HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("handler", "query"),
	}
}

// HandleGetRecord handles GET /api/v1/events/{id}
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid event id: "+r.PathValue("id"))
		return
	}

	record, err := h.service.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, outbox.ErrRecordNotFound) {
			h.writeError(w, http.StatusNotFound, "event record not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

// HandleListRecords handles GET /api/v1/events?state=&limit=&offset=
func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), DefaultLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid limit: "+q.Get("limit"))
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid offset: "+q.Get("offset"))
		return
	}

	list, err := h.service.ListRecords(r.Context(), q.Get("state"), limit, offset)
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
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
