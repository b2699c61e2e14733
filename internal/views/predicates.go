package views

import (
	"strings"

	"taskdesk/internal/models"
)

// Kind names a predicate-based view.
type Kind string

const (
	KindToday     Kind = "today"
	KindOverdue   Kind = "overdue"
	KindUpcoming  Kind = "upcoming"
	KindCompleted Kind = "completed"
)

// IsToday reports whether t is incomplete and due on ref.
func IsToday(t *models.Task, ref models.Date) bool {
	return !t.Completed && t.DueDate != nil && *t.DueDate == ref
}

// IsOverdue reports whether t is incomplete and due strictly before ref.
func IsOverdue(t *models.Task, ref models.Date) bool {
	return t.IsOverdue(ref)
}

// IsUpcoming reports whether t is incomplete and due strictly after ref.
func IsUpcoming(t *models.Task, ref models.Date) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.After(ref)
}

// IsCompleted reports whether t is completed.
func IsCompleted(t *models.Task) bool {
	return t.Completed
}

// Matches evaluates the predicate of kind k.
func Matches(k Kind, t *models.Task, ref models.Date) bool {
	switch k {
	case KindToday:
		return IsToday(t, ref)
	case KindOverdue:
		return IsOverdue(t, ref)
	case KindUpcoming:
		return IsUpcoming(t, ref)
	case KindCompleted:
		return IsCompleted(t)
	default:
		return false
	}
}

// MatchesSearch reports whether query occurs in the title or description,
// ignoring case. The empty query matches everything.
func MatchesSearch(t *models.Task, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

func selectTasks(tasks []models.Task, keep func(*models.Task) bool) []models.Task {
	out := make([]models.Task, 0)
	for i := range tasks {
		if keep(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

// Today returns the tasks due on ref that are not completed.
func Today(tasks []models.Task, ref models.Date) []models.Task {
	return selectTasks(tasks, func(t *models.Task) bool { return IsToday(t, ref) })
}

// Overdue returns the incomplete tasks due before ref.
func Overdue(tasks []models.Task, ref models.Date) []models.Task {
	return selectTasks(tasks, func(t *models.Task) bool { return IsOverdue(t, ref) })
}

// Completed returns the completed tasks.
func Completed(tasks []models.Task) []models.Task {
	return selectTasks(tasks, IsCompleted)
}
