package views

import (
	"sort"

	"taskdesk/internal/models"
)

// Group holds the upcoming tasks due on one date.
type Group struct {
	Date  models.Date   `json:"date"`
	Label string        `json:"label"`
	Tasks []models.Task `json:"tasks"`
}

// Upcoming returns the incomplete tasks due after ref, grouped by due date.
// Groups are ordered by date and each group is sorted by Compare.
func Upcoming(tasks []models.Task, ref models.Date) []Group {
	byDate := make(map[models.Date][]models.Task)
	for i := range tasks {
		t := &tasks[i]
		if !IsUpcoming(t, ref) {
			continue
		}
		byDate[*t.DueDate] = append(byDate[*t.DueDate], *t)
	}

	dates := make([]models.Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	groups := make([]Group, 0, len(dates))
	for _, d := range dates {
		group := byDate[d]
		Sort(group)
		groups = append(groups, Group{Date: d, Label: GroupLabel(d, ref), Tasks: group})
	}
	return groups
}

// GroupLabel returns "Tomorrow" for the day after ref, otherwise a long
// weekday form such as "Monday, January 2".
func GroupLabel(d, ref models.Date) string {
	if d == ref.AddDays(1) {
		return "Tomorrow"
	}
	return d.Time().Format("Monday, January 2")
}

// DueLabel returns the short badge text for a task's due date: "Today",
// "Overdue" for past dates, otherwise "Jan 2". It is empty without a due date.
func DueLabel(t *models.Task, ref models.Date) string {
	switch {
	case t.DueDate == nil:
		return ""
	case *t.DueDate == ref:
		return "Today"
	case t.DueDate.Before(ref):
		return "Overdue"
	default:
		return t.DueDate.Time().Format("Jan 2")
	}
}
