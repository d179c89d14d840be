package query

import "net/http"

// RegisterRoutes registers query service routes on the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /api/v1/events", h.HandleListRecords)
	mux.HandleFunc("GET /api/v1/events/{id}", h.HandleGetRecord)
}
