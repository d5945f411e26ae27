package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes builds the router. logger and metrics may be nil.
func Routes(h *Handler, logger *slog.Logger, corsOrigins []string, metrics http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(CORS(corsOrigins))

	r.Get("/health", h.HealthCheck)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Post("/people", h.CreatePerson)

	r.Route("/inscriptions", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Get("/", h.ListInscriptions)
		r.Get("/{id}", h.GetInscription)
		r.Delete("/{id}", h.DeleteInscription)
		r.Patch("/{id}/winner", h.MarkWinner)
		r.Get("/{id}/winner", h.GetWinner)
	})
	r.Get("/winners", h.ListWinners)

	r.Route("/draws", func(r chi.Router) {
		r.Post("/", h.CreateDraw)
		r.Get("/", h.ListDraws)
		r.Get("/active", h.ListActiveDraws)
		r.Get("/{id}", h.GetDraw)
	})

	r.Get("/states", h.ListStates)
	r.Get("/states/{id}/municipalities", h.ListMunicipalities)
	r.Get("/municipalities/resolve", h.ResolveMunicipality)
	r.Get("/courses", h.ListCourses)

	return r
}
