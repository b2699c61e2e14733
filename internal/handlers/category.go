package handlers

import (
	"net/http"

	"taskdesk/internal/models"
)

// ListCategories returns the category collection with its loading and error state.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.categories.State())
}

// GetCategory returns one category.
func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	for _, c := range h.categories.Categories() {
		if c.ID == id {
			respondJSON(w, http.StatusOK, c)
			return
		}
	}
	respondError(w, http.StatusNotFound, "category not found")
}

// CreateCategory creates a new category.
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c models.Category
	if err := decodeJSON(r, &c); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	created, err := h.categories.Create(r.Context(), c)
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// UpdateCategory applies a partial update to an existing category.
func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var patch models.CategoryPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	c, err := h.categories.Update(r.Context(), id, patch)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// DeleteCategory deletes a category. Its tasks are kept.
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		h.respondFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RefreshCategoryCounts recomputes every category's active task count.
func (h *Handlers) RefreshCategoryCounts(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.RefreshTaskCounts(r.Context(), h.tasks.Tasks()); err != nil {
		h.respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.categories.Categories())
}
