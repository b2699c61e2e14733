package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Router builds the HTTP API. ws serves the change feed and may be nil.
func (h *Handlers) Router(allowedOrigins []string, ws http.HandlerFunc) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if ws != nil {
			r.Get("/ws", ws)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			// View routes
			r.Get("/views/today", h.TodayView)
			r.Get("/views/upcoming", h.UpcomingView)
			r.Get("/views/completed", h.CompletedView)
			r.Get("/views/all", h.AllView)
			r.Get("/counts", h.Counts)
			r.Get("/due-labels", h.DueLabels)

			// Task API routes
			r.Get("/tasks", h.ListTasks)
			r.Post("/tasks", h.CreateTask)
			r.Post("/tasks/quick", h.QuickAddTask)
			r.Delete("/tasks/completed", h.ClearCompleted)
			r.Get("/tasks/{id}", h.GetTask)
			r.Put("/tasks/{id}", h.UpdateTask)
			r.Delete("/tasks/{id}", h.DeleteTask)
			r.Post("/tasks/{id}/toggle", h.ToggleTask)

			// Category API routes
			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.CreateCategory)
			r.Post("/categories/refresh-counts", h.RefreshCategoryCounts)
			r.Get("/categories/{id}", h.GetCategory)
			r.Put("/categories/{id}", h.UpdateCategory)
			r.Delete("/categories/{id}", h.DeleteCategory)
		})
	})

	return r
}
