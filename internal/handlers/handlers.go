package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"taskdesk/internal/models"
	"taskdesk/internal/tasks"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	tasks      *tasks.Manager
	categories *tasks.CategoryManager
	page       *tasks.Page
	log        *slog.Logger
	now        func() time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

// WithClock sets the source of the current time. The reference date of every
// view is the calendar date of this clock in its own location.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) { h.now = now }
}

// New creates a new Handlers instance.
func New(m *tasks.Manager, c *tasks.CategoryManager, p *tasks.Page, log *slog.Logger, opts ...Option) *Handlers {
	h := &Handlers{
		tasks:      m,
		categories: c,
		page:       p,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// parseID extracts and parses an integer ID from URL parameters.
func parseID(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	return strconv.ParseInt(idStr, 10, 64)
}

// refDate returns the reference date: the "date" query parameter when given,
// today otherwise.
func (h *Handlers) refDate(r *http.Request) (models.Date, error) {
	if s := r.URL.Query().Get("date"); s != "" {
		return models.ParseDate(s)
	}
	return models.DateOf(h.now()), nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func (h *Handlers) respondServerError(w http.ResponseWriter, err error) {
	h.log.Error("internal server error", "error", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// respondFailure maps hook errors onto status codes: validation errors are
// 400 with per-field messages, operation failures are 500 with their generic
// message.
func (h *Handlers) respondFailure(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, map[string]any{"errors": verr.Fields})
		return
	}

	var opErr *tasks.OperationError
	if errors.As(err, &opErr) {
		respondError(w, http.StatusInternalServerError, opErr.Message)
		return
	}

	h.respondServerError(w, err)
}
