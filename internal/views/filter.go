package views

import (
	"slices"

	"taskdesk/internal/models"
)

// Query narrows a view. A nil CategoryID means every category.
type Query struct {
	Search     string
	CategoryID *int64
}

// Filter applies the search filter, then the category filter, then Sort.
// The input slice is not modified.
func Filter(tasks []models.Task, q Query) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if !MatchesSearch(t, q.Search) {
			continue
		}
		if q.CategoryID != nil && t.CategoryID != *q.CategoryID {
			continue
		}
		out = append(out, *t)
	}
	Sort(out)
	return out
}

// Compare orders tasks by priority (high first), then by due date ascending
// with dated tasks before undated ones, then, when neither has a due date,
// newest first. Tasks with equal due dates compare equal.
func Compare(a, b models.Task) int {
	if d := b.Priority.Rank() - a.Priority.Rank(); d != 0 {
		return d
	}

	switch {
	case a.DueDate != nil && b.DueDate != nil:
		return a.DueDate.Compare(*b.DueDate)
	case a.DueDate != nil:
		return -1
	case b.DueDate != nil:
		return 1
	}

	return b.CreatedAt.Compare(a.CreatedAt)
}

// Sort orders tasks in place by Compare. Equal tasks keep their relative order.
func Sort(tasks []models.Task) {
	slices.SortStableFunc(tasks, Compare)
}
