// Package api serves the session control surface, the recipe book and
// schedule planning over HTTP, with live session updates over server-sent
// events and websockets.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/korjavin/cookalong/pkg/control"
	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/planner"
	"github.com/korjavin/cookalong/pkg/recipes"
	"github.com/korjavin/cookalong/pkg/stats"
)

// NewRouter creates the Chi router with all routes and middleware.
// recipeSvc, previews and statsSvc may be nil, which leaves their routes out.
func NewRouter(
	sessions *control.Service,
	recipeSvc *recipes.Service,
	previews *planner.PreviewService,
	statsSvc *stats.Service,
	apiKey string,
) *chi.Mux {
	log := logger.New("api")
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recovery(log))

	r.Get("/health", Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		sessionH := NewSessionHandler(sessions, previews)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionH.Create)
			r.Get("/{id}/state", sessionH.State)
			r.Get("/{id}/schedule", sessionH.Schedule)
			r.Post("/{id}/start", sessionH.Start)
			r.Post("/{id}/pause", sessionH.Pause)
			r.Post("/{id}/resume", sessionH.Resume)
			r.Post("/{id}/skip", sessionH.Skip)
			r.Post("/{id}/end", sessionH.End)
			r.Delete("/{id}", sessionH.Delete)
			r.Get("/{id}/stream", sessionH.Stream)
			r.Get("/{id}/ws", sessionH.WebSocket)
		})

		if recipeSvc != nil {
			recipeH := NewRecipeHandler(recipeSvc)
			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", recipeH.List)
				r.Post("/", recipeH.Save)
				r.Get("/{id}", recipeH.Get)
				r.Delete("/{id}", recipeH.Delete)
			})
		}

		if recipeSvc != nil && previews != nil {
			scheduleH := NewScheduleHandler(recipeSvc, previews)
			r.Route("/schedule", func(r chi.Router) {
				r.Post("/preview", scheduleH.Preview)
				r.Post("/linear", scheduleH.Linear)
			})
		}

		if statsSvc != nil {
			statsH := NewStatsHandler(statsSvc)
			r.Get("/stats", statsH.List)
		}
	})

	return r
}
