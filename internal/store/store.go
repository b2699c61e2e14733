package store

import (
	"context"
	"errors"

	"taskdesk/internal/models"
)

// ErrNotFound is returned when an operation references an id that does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for data persistence operations.
// Every returned record is a copy; callers may modify it freely.
type Store interface {
	// Task operations
	ListTasks(ctx context.Context) ([]models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) (*models.Task, error)
	ToggleTaskComplete(ctx context.Context, id int64) (*models.Task, error)

	// Task queries
	TodayTasks(ctx context.Context, ref models.Date) ([]models.Task, error)
	UpcomingTasks(ctx context.Context, ref models.Date) ([]models.Task, error)
	OverdueTasks(ctx context.Context, ref models.Date) ([]models.Task, error)
	CompletedTasks(ctx context.Context) ([]models.Task, error)
	TasksByCategory(ctx context.Context, categoryID int64) ([]models.Task, error)
	SearchTasks(ctx context.Context, query string) ([]models.Task, error)

	// Category operations
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, category models.Category) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) (*models.Category, error)
	UpdateCategoryTaskCount(ctx context.Context, id int64, count int) (*models.Category, error)

	// Seed loads fixture records with their ids. A store that already holds
	// records is left unchanged.
	Seed(ctx context.Context, fx Fixtures) error

	// Lifecycle
	Close() error
}
