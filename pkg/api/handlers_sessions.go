package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/korjavin/cookalong/pkg/control"
	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/planner"
)

// SessionHandler handles session HTTP requests
type SessionHandler struct {
	sessions *control.Service
	previews *planner.PreviewService
}

// NewSessionHandler creates a new session handler. previews may be nil.
func NewSessionHandler(sessions *control.Service, previews *planner.PreviewService) *SessionHandler {
	return &SessionHandler{sessions: sessions, previews: previews}
}

// CreateSessionRequest is either a full schedule or a preview reference
type CreateSessionRequest struct {
	PreviewID        string                `json:"previewId,omitempty"`
	Items            []models.TimelineItem `json:"items"`
	TotalDurationSec int                   `json:"totalDurationSec"`
}

// CreateSessionResponse is returned by POST /sessions
type CreateSessionResponse struct {
	ID               string               `json:"id"`
	Status           models.SessionStatus `json:"status"`
	TotalDurationSec int                  `json:"totalDurationSec"`
}

// StatusResponse is returned by the status transitions
type StatusResponse struct {
	OK     bool                 `json:"ok"`
	Status models.SessionStatus `json:"status"`
}

// SkipResponse is returned by POST /sessions/{id}/skip
type SkipResponse struct {
	OK       bool             `json:"ok"`
	Snapshot models.TickState `json:"snapshot"`
}

// Create handles POST /sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule payload.")
		return
	}

	var schedule models.ScheduleResult
	switch {
	case req.PreviewID != "":
		if h.previews == nil {
			writeError(w, http.StatusNotFound, "Schedule preview not found")
			return
		}
		preview, err := h.previews.Get(req.PreviewID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		schedule = preview.Schedule
	case req.Items != nil:
		schedule = models.ScheduleResult{Items: req.Items, TotalDurationSec: req.TotalDurationSec}
	default:
		writeError(w, http.StatusBadRequest, "Invalid schedule payload.")
		return
	}

	session, err := h.sessions.CreateSession(schedule)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		ID:               session.ID,
		Status:           session.Status,
		TotalDurationSec: session.Schedule.TotalDurationSec,
	})
}

// Start handles POST /sessions/{id}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.Start)
}

// Pause handles POST /sessions/{id}/pause
func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.Pause)
}

// Resume handles POST /sessions/{id}/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.Resume)
}

// End handles POST /sessions/{id}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.End)
}

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, op func(string) (models.SessionStatus, error)) {
	status, err := op(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{OK: true, Status: status})
}

// Skip handles POST /sessions/{id}/skip
func (h *SessionHandler) Skip(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Skip(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SkipResponse{OK: true, Snapshot: snap})
}

// State handles GET /sessions/{id}/state
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.State(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Schedule handles GET /sessions/{id}/schedule
func (h *SessionHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.sessions.Schedule(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// Delete handles DELETE /sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
