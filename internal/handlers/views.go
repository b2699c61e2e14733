package handlers

import (
	"net/http"
	"strconv"

	"taskdesk/internal/models"
	"taskdesk/internal/tasks"
	"taskdesk/internal/views"
)

// parseQuery reads the search and category filters from the query string.
func parseQuery(r *http.Request) (views.Query, error) {
	q := views.Query{Search: r.URL.Query().Get("search")}
	if s := r.URL.Query().Get("category"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return q, err
		}
		q.CategoryID = &id
	}
	return q, nil
}

// viewRequest parses the reference date and filters shared by every view.
func (h *Handlers) viewRequest(w http.ResponseWriter, r *http.Request) (models.Date, views.Query, bool) {
	ref, err := h.refDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date")
		return ref, views.Query{}, false
	}
	q, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid category id")
		return ref, q, false
	}
	return ref, q, true
}

// snapshot returns the cached subsets for ref. The current day stays pinned so
// requests for other dates never push it out of the cache.
func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request, ref models.Date) (tasks.Subsets, bool) {
	h.page.Pin(models.DateOf(h.now()))
	subsets, err := h.page.Snapshot(r.Context(), ref)
	if err != nil {
		h.respondFailure(w, err)
		return nil, false
	}
	return subsets, true
}

// TodayData is the Today page: overdue and today sections plus progress.
type TodayData struct {
	Date     models.Date    `json:"date"`
	Overdue  []models.Task  `json:"overdue"`
	Today    []models.Task  `json:"today"`
	Progress views.Progress `json:"progress"`
}

// TodayView renders the overdue and due-today sections.
func (h *Handlers) TodayView(w http.ResponseWriter, r *http.Request) {
	ref, q, ok := h.viewRequest(w, r)
	if !ok {
		return
	}

	subsets, ok := h.snapshot(w, r, ref)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, TodayData{
		Date:     ref,
		Overdue:  views.Filter(subsets[views.KindOverdue], q),
		Today:    views.Filter(subsets[views.KindToday], q),
		Progress: views.TodayProgress(h.tasks.Tasks(), ref),
	})
}

// UpcomingData is the Upcoming page grouped by due date.
type UpcomingData struct {
	Date   models.Date   `json:"date"`
	Groups []views.Group `json:"groups"`
}

// UpcomingView renders incomplete future tasks grouped by date.
func (h *Handlers) UpcomingView(w http.ResponseWriter, r *http.Request) {
	ref, q, ok := h.viewRequest(w, r)
	if !ok {
		return
	}

	subsets, ok := h.snapshot(w, r, ref)
	if !ok {
		return
	}

	groups := views.Upcoming(views.Filter(subsets[views.KindUpcoming], q), ref)
	respondJSON(w, http.StatusOK, UpcomingData{Date: ref, Groups: groups})
}

// CompletedData is the Completed page with completion stats.
type CompletedData struct {
	Tasks []models.Task `json:"tasks"`
	Stats views.Stats   `json:"stats"`
}

// CompletedView renders completed tasks.
func (h *Handlers) CompletedView(w http.ResponseWriter, r *http.Request) {
	ref, q, ok := h.viewRequest(w, r)
	if !ok {
		return
	}

	subsets, ok := h.snapshot(w, r, ref)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, CompletedData{
		Tasks: views.Filter(subsets[views.KindCompleted], q),
		Stats: views.CompletionStats(h.tasks.Tasks(), h.now()),
	})
}

// AllView renders every task, filtered and sorted.
func (h *Handlers) AllView(w http.ResponseWriter, r *http.Request) {
	_, q, ok := h.viewRequest(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string][]models.Task{
		"tasks": views.Filter(h.tasks.Tasks(), q),
	})
}

// Counts renders the sidebar badge counts.
func (h *Handlers) Counts(w http.ResponseWriter, r *http.Request) {
	ref, err := h.refDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date")
		return
	}

	respondJSON(w, http.StatusOK, views.CountTasks(h.tasks.Tasks(), ref))
}
