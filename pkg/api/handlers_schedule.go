package api

import (
	"net/http"

	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/planner"
	"github.com/korjavin/cookalong/pkg/recipes"
)

// ScheduleHandler handles schedule planning HTTP requests
type ScheduleHandler struct {
	recipes  *recipes.Service
	previews *planner.PreviewService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(recipeSvc *recipes.Service, previews *planner.PreviewService) *ScheduleHandler {
	return &ScheduleHandler{recipes: recipeSvc, previews: previews}
}

// ScheduleRequest names the recipes to plan
type ScheduleRequest struct {
	RecipeIDs []string `json:"recipeIds"`
}

// PreviewResponse is returned by POST /schedule/preview
type PreviewResponse struct {
	PreviewID string                `json:"previewId"`
	Schedule  models.ScheduleResult `json:"schedule"`
}

// Preview handles POST /schedule/preview
func (h *ScheduleHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	preview, err := h.previews.GetOrCreate(r.Context(), req.RecipeIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{PreviewID: preview.ID, Schedule: preview.Schedule})
}

// Linear handles POST /schedule/linear: the recipes back to back in the
// requested order, without caching
func (h *ScheduleHandler) Linear(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.RecipeIDs) == 0 {
		writeServiceError(w, planner.ErrNoRecipes)
		return
	}

	list, err := h.recipes.GetMany(req.RecipeIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planner.Linear(list))
}
