package handlers

import (
	"net/http"

	"taskdesk/internal/models"
	"taskdesk/internal/views"
)

// taskRequest is the create body. The due date is decoded as text so that a
// malformed date is reported against the dueDate field.
type taskRequest struct {
	models.Task
	DueDate string `json:"dueDate"`
}

func (req taskRequest) task() (models.Task, error) {
	task := req.Task
	due, err := models.ParseDueDate(req.DueDate)
	if err != nil {
		return task, err
	}
	task.DueDate = due
	return task, nil
}

// decodeTask reads a create body, responding to the client on failure.
func (h *Handlers) decodeTask(w http.ResponseWriter, r *http.Request) (models.Task, bool) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return models.Task{}, false
	}
	task, err := req.task()
	if err != nil {
		h.respondFailure(w, err)
		return models.Task{}, false
	}
	return task, true
}

// ListTasks returns the task collection with its loading and error state.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.tasks.State())
}

// GetTask returns one task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	for _, task := range h.tasks.Tasks() {
		if task.ID == id {
			respondJSON(w, http.StatusOK, task)
			return
		}
	}
	respondError(w, http.StatusNotFound, "task not found")
}

// CreateTask creates a new task.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.decodeTask(w, r)
	if !ok {
		return
	}

	created, err := h.tasks.Create(r.Context(), task)
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// QuickAddTask creates a task from a title, filling in the category and
// priority when they are missing.
func (h *Handlers) QuickAddTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.decodeTask(w, r)
	if !ok {
		return
	}

	created, err := h.tasks.QuickAdd(r.Context(), task)
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// UpdateTask applies a partial update to an existing task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var patch models.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.tasks.Update(r.Context(), id, patch)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.tasks.Delete(r.Context(), id); err != nil {
		h.respondFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask toggles the completion status of a task.
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.tasks.ToggleComplete(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// ClearCompleted deletes every completed task.
func (h *Handlers) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	removed, err := h.tasks.ClearCompleted(r.Context())
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// DueLabels returns the due-date badge for every task, keyed by id.
func (h *Handlers) DueLabels(w http.ResponseWriter, r *http.Request) {
	ref, err := h.refDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date")
		return
	}

	labels := make(map[int64]string)
	for _, task := range h.tasks.Tasks() {
		if label := views.DueLabel(&task, ref); label != "" {
			labels[task.ID] = label
		}
	}
	respondJSON(w, http.StatusOK, labels)
}
