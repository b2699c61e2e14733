package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"taskdesk/internal/models"
	"taskdesk/internal/views"
)

const taskColumns = `id, title, description, category_id, priority, due_date, completed, completed_at, created_at, updated_at`

const categoryColumns = `id, name, icon, color, task_count`

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string, log *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		task        models.Task
		dueDate     sql.Null[models.Date]
		completedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.CategoryID,
		&task.Priority,
		&dueDate,
		&task.Completed,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return task, err
	}

	if dueDate.Valid {
		task.DueDate = &dueDate.V
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	return task, nil
}

func scanCategory(row rowScanner) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.TaskCount)
	return c, err
}

func nullableDate(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func (s *SQLiteStore) queryTasks(ctx context.Context, where string, args ...any) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Seed inserts fixture records with their ids into an empty database.
func (s *SQLiteStore) Seed(ctx context.Context, fx Fixtures) error {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT (SELECT COUNT(*) FROM tasks) + (SELECT COUNT(*) FROM categories)`).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range fx.Categories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, icon, color, task_count) VALUES (?, ?, ?, ?, ?)
		`, c.ID, c.Name, c.Icon, c.Color, c.TaskCount)
		if err != nil {
			return fmt.Errorf("failed to seed category %d: %w", c.ID, err)
		}
	}

	for _, t := range fx.Tasks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.Title, t.Description, t.CategoryID, t.Priority, nullableDate(t.DueDate),
			t.Completed, nullableTime(t.CompletedAt), t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to seed task %d: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// ListTasks retrieves all tasks in creation order.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, "")
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// CreateTask creates a new, incomplete task in the database.
func (s *SQLiteStore) CreateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	now := s.now()
	task = task.Clone()
	task.Completed = false
	task.CompletedAt = nil
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, category_id, priority, due_date, completed, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, FALSE, NULL, ?, ?)
	`, task.Title, task.Description, task.CategoryID, task.Priority, nullableDate(task.DueDate), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id

	return &task, nil
}

// mutateTask loads a task, applies fn and writes every column back in one transaction.
func (s *SQLiteStore) mutateTask(ctx context.Context, id int64, fn func(*models.Task, time.Time) error) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	now := s.now()
	if err := fn(&task, now); err != nil {
		return nil, err
	}
	task.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, category_id = ?, priority = ?, due_date = ?,
			completed = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`, task.Title, task.Description, task.CategoryID, task.Priority, nullableDate(task.DueDate),
		task.Completed, nullableTime(task.CompletedAt), task.UpdatedAt, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task update: %w", err)
	}
	return &task, nil
}

// UpdateTask merges patch into an existing task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	return s.mutateTask(ctx, id, func(t *models.Task, now time.Time) error {
		if err := patch.Apply(t, now); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
}

// ToggleTaskComplete toggles the completed status of a task.
func (s *SQLiteStore) ToggleTaskComplete(ctx context.Context, id int64) (*models.Task, error) {
	return s.mutateTask(ctx, id, func(t *models.Task, now time.Time) error {
		t.SetCompleted(!t.Completed, now)
		return nil
	})
}

// DeleteTask deletes a task by ID and returns it.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	return task, nil
}

// TodayTasks returns incomplete tasks due on ref.
func (s *SQLiteStore) TodayTasks(ctx context.Context, ref models.Date) ([]models.Task, error) {
	return s.queryTasks(ctx, `due_date = ? AND completed = FALSE`, ref.String())
}

// UpcomingTasks returns incomplete tasks due after ref.
func (s *SQLiteStore) UpcomingTasks(ctx context.Context, ref models.Date) ([]models.Task, error) {
	return s.queryTasks(ctx, `due_date IS NOT NULL AND due_date > ? AND completed = FALSE`, ref.String())
}

// OverdueTasks returns incomplete tasks due before ref.
func (s *SQLiteStore) OverdueTasks(ctx context.Context, ref models.Date) ([]models.Task, error) {
	return s.queryTasks(ctx, `due_date IS NOT NULL AND due_date < ? AND completed = FALSE`, ref.String())
}

// CompletedTasks returns every completed task.
func (s *SQLiteStore) CompletedTasks(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, `completed = TRUE`)
}

// TasksByCategory returns the tasks that reference categoryID.
func (s *SQLiteStore) TasksByCategory(ctx context.Context, categoryID int64) ([]models.Task, error) {
	return s.queryTasks(ctx, `category_id = ?`, categoryID)
}

// SearchTasks matches in Go rather than with LIKE, whose case folding is ASCII only.
func (s *SQLiteStore) SearchTasks(ctx context.Context, query string) ([]models.Task, error) {
	all, err := s.queryTasks(ctx, "")
	if err != nil {
		return nil, err
	}

	out := make([]models.Task, 0)
	for i := range all {
		if views.MatchesSearch(&all[i], query) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// ListCategories retrieves all categories in creation order.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// GetCategory retrieves a category by ID.
func (s *SQLiteStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// CreateCategory creates a category with a zero task count.
func (s *SQLiteStore) CreateCategory(ctx context.Context, category models.Category) (*models.Category, error) {
	category.TaskCount = 0

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, icon, color, task_count) VALUES (?, ?, ?, 0)
	`, category.Name, category.Icon, category.Color)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	category.ID = id

	return &category, nil
}

func (s *SQLiteStore) mutateCategory(ctx context.Context, id int64, fn func(*models.Category)) (*models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := scanCategory(tx.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	fn(&c)

	_, err = tx.ExecContext(ctx, `
		UPDATE categories SET name = ?, icon = ?, color = ?, task_count = ? WHERE id = ?
	`, c.Name, c.Icon, c.Color, c.TaskCount, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit category update: %w", err)
	}
	return &c, nil
}

// UpdateCategory merges patch into an existing category.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	return s.mutateCategory(ctx, id, patch.Apply)
}

// UpdateCategoryTaskCount overwrites the denormalized task counter.
func (s *SQLiteStore) UpdateCategoryTaskCount(ctx context.Context, id int64, count int) (*models.Category, error) {
	return s.mutateCategory(ctx, id, func(c *models.Category) { c.TaskCount = count })
}

// DeleteCategory deletes a category. Tasks referencing it are kept.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}
	return c, nil
}
