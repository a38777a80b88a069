package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/redoxflux/internal/fluxservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *fluxservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/products", h.Products)

	// Optimization.
	r.Post("/optimize", h.Optimize)
	r.Post("/optimize/all", h.OptimizeAll)
	r.Post("/compare", h.Compare)
	r.Post("/pathways", h.Pathways)

	// Screening.
	r.Route("/screen", func(r chi.Router) {
		r.Post("/knockouts", h.ScreenKnockouts)
		r.Post("/substrates", h.ScreenSubstrates)
	})
	r.Post("/tradeoff", h.Tradeoff)

	// Electrochemistry.
	r.Route("/electrochem", func(r chi.Router) {
		r.Post("/nernst", h.Nernst)
		r.Post("/rate", h.Rate)
		r.Post("/enhance", h.Enhance)
		r.Post("/sweep", h.Sweep)
		r.Post("/compare", h.CompareRegeneration)
	})

	// Recorded runs.
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}", h.GetRun)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
