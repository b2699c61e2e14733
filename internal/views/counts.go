package views

import (
	"time"

	"taskdesk/internal/models"
)

// Counts are the navigation badges: incomplete tasks per view and per category.
type Counts struct {
	Today      int           `json:"today"`
	Upcoming   int           `json:"upcoming"`
	Active     int           `json:"active"`
	Completed  int           `json:"completed"`
	ByCategory map[int64]int `json:"byCategory"`
}

// CountTasks computes the badge counts for ref.
func CountTasks(tasks []models.Task, ref models.Date) Counts {
	c := Counts{ByCategory: make(map[int64]int)}
	for i := range tasks {
		t := &tasks[i]
		if t.Completed {
			c.Completed++
			continue
		}
		c.Active++
		c.ByCategory[t.CategoryID]++
		if IsToday(t, ref) {
			c.Today++
		}
		if IsUpcoming(t, ref) {
			c.Upcoming++
		}
	}
	return c
}

// Stats summarizes completed tasks.
type Stats struct {
	Total    int `json:"total"`
	ThisWeek int `json:"thisWeek"`
}

// CompletionStats counts completed tasks, and those completed within the
// seven days before now.
func CompletionStats(tasks []models.Task, now time.Time) Stats {
	weekAgo := now.AddDate(0, 0, -7)

	var s Stats
	for i := range tasks {
		t := &tasks[i]
		if !t.Completed {
			continue
		}
		s.Total++
		if t.CompletedAt != nil && !t.CompletedAt.Before(weekAgo) {
			s.ThisWeek++
		}
	}
	return s
}

// Progress is the share of a page's tasks that are done.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// TodayProgress counts the tasks that belong on the Today page: everything due
// on ref plus incomplete tasks that are overdue. Completed is the number of
// those already done.
func TodayProgress(tasks []models.Task, ref models.Date) Progress {
	var p Progress
	for i := range tasks {
		t := &tasks[i]
		if !t.HasDueDate() {
			continue
		}
		switch {
		case t.DueDate.Compare(ref) == 0:
			p.Total++
			if t.Completed {
				p.Completed++
			}
		case IsOverdue(t, ref):
			p.Total++
		}
	}
	return p
}
