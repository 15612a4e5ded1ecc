package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/recipes"
)

// RecipeHandler handles recipe book HTTP requests
type RecipeHandler struct {
	recipes *recipes.Service
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(svc *recipes.Service) *RecipeHandler {
	return &RecipeHandler{recipes: svc}
}

// List handles GET /recipes
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.recipes.List()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": list, "count": len(list)})
}

// Save handles POST /recipes
func (h *RecipeHandler) Save(w http.ResponseWriter, r *http.Request) {
	var recipe models.Recipe
	if err := decodeJSON(r, &recipe); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	saved, err := h.recipes.Save(recipe)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Get handles GET /recipes/{id}
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// Delete handles DELETE /recipes/{id}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.recipes.Delete(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
