package models

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank returns a numeric value for sorting by priority.
// Higher numbers indicate higher priority; unknown priorities rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Task represents a single to-do item.
type Task struct {
	ID          int64      `json:"Id" yaml:"Id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	CategoryID  int64      `json:"categoryId" yaml:"categoryId"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	DueDate     *Date      `json:"dueDate" yaml:"dueDate"`
	Completed   bool       `json:"completed" yaml:"completed"`
	CompletedAt *time.Time `json:"completedAt" yaml:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	verr := &ValidationError{}

	if strings.TrimSpace(t.Title) == "" {
		verr.add("title", "Task title is required")
	}

	if t.CategoryID <= 0 {
		verr.add("categoryId", "Please select a category")
	}

	if !t.Priority.Valid() {
		verr.add("priority", "priority must be 'high', 'medium', or 'low'")
	}

	return verr.orNil()
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		t.CompletedAt = &c
	}
	return t
}

// SetCompleted sets the completion flag, keeping CompletedAt non-nil exactly
// when the task is completed. Re-completing a completed task keeps its original time.
func (t *Task) SetCompleted(done bool, now time.Time) {
	switch {
	case done && !t.Completed:
		t.Completed = true
		t.CompletedAt = &now
	case !done:
		t.Completed = false
		t.CompletedAt = nil
	}
}

// HasDueDate reports whether the task has a due date.
func (t *Task) HasDueDate() bool {
	return t.DueDate != nil
}

// IsOverdue returns true if the task is not completed and its due date is before ref.
func (t *Task) IsOverdue(ref Date) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(ref)
}

// TaskPatch is a partial update. Nil fields are left untouched.
// DueDate is a YYYY-MM-DD string; the empty string clears the due date.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	CategoryID  *int64    `json:"categoryId,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

// Validate checks the fields the patch sets, without needing the stored task.
func (p TaskPatch) Validate() error {
	verr := &ValidationError{}

	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		verr.add("title", "Task title is required")
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		verr.add("categoryId", "Please select a category")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		verr.add("priority", "priority must be 'high', 'medium', or 'low'")
	}
	if p.DueDate != nil {
		if _, err := ParseDueDate(*p.DueDate); err != nil {
			verr.add("dueDate", fmt.Sprintf("invalid due date %q", *p.DueDate))
		}
	}

	return verr.orNil()
}

// ParseDueDate parses a YYYY-MM-DD due date. The empty string means no due
// date. A malformed date is a *ValidationError on dueDate.
func ParseDueDate(s string) (*Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"dueDate": fmt.Sprintf("invalid due date %q", s)}}
	}
	return &d, nil
}

// Apply merges the patch into t. It does not touch UpdatedAt.
func (p TaskPatch) Apply(t *Task, now time.Time) error {
	if p.DueDate != nil {
		d, err := ParseDueDate(*p.DueDate)
		if err != nil {
			return err
		}
		t.DueDate = d
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.SetCompleted(*p.Completed, now)
	}
	return nil
}
