package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. Authentication
// is applied router-wide by the caller; /health and /api/v1/token are exempted
// inside the middleware itself.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/token", h.IssueToken)

		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/{id}", h.GetTask)

		r.Get("/reports/{id}", h.GetReport)
		r.Get("/reports/{id}/view", h.ViewReport)
	})
}
