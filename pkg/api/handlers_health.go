package api

import (
	"net/http"

	"github.com/korjavin/cookalong/pkg/stats"
)

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "healthy"})
}

// StatsHandler handles cooking stats HTTP requests
type StatsHandler struct {
	stats *stats.Service
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(svc *stats.Service) *StatsHandler {
	return &StatsHandler{stats: svc}
}

// List handles GET /stats
func (h *StatsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.stats.List()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": list})
}
