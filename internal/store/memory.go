package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskdesk/internal/models"
	"taskdesk/internal/views"
)

// DefaultLatency is the artificial delay of each MemoryStore operation.
var DefaultLatency = map[string]time.Duration{
	"ListTasks":               300 * time.Millisecond,
	"GetTask":                 200 * time.Millisecond,
	"CreateTask":              400 * time.Millisecond,
	"UpdateTask":              300 * time.Millisecond,
	"DeleteTask":              200 * time.Millisecond,
	"ToggleTaskComplete":      200 * time.Millisecond,
	"TodayTasks":              200 * time.Millisecond,
	"UpcomingTasks":           200 * time.Millisecond,
	"OverdueTasks":            200 * time.Millisecond,
	"CompletedTasks":          200 * time.Millisecond,
	"TasksByCategory":         250 * time.Millisecond,
	"SearchTasks":             150 * time.Millisecond,
	"ListCategories":          200 * time.Millisecond,
	"GetCategory":             150 * time.Millisecond,
	"CreateCategory":          300 * time.Millisecond,
	"UpdateCategory":          250 * time.Millisecond,
	"DeleteCategory":          200 * time.Millisecond,
	"UpdateCategoryTaskCount": 100 * time.Millisecond,
}

// MemoryStore implements the Store interface over in-memory slices.
type MemoryStore struct {
	mu             sync.RWMutex
	tasks          []models.Task
	categories     []models.Category
	lastTaskID     int64
	lastCategoryID int64

	latency map[string]time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithLatency sets per-operation delays. A nil map disables latency.
func WithLatency(latency map[string]time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.latency = latency }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty store. Latency is off unless WithLatency is given.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// delay blocks for the operation's artificial latency. It ignores ctx: once
// started, a store operation always resolves.
func (s *MemoryStore) delay(op string) {
	if d := s.latency[op]; d > 0 {
		time.Sleep(d)
	}
}

// Close is a no-op; the store is memory only.
func (s *MemoryStore) Close() error {
	return nil
}

// Seed replaces the empty collections with copies of the fixtures.
func (s *MemoryStore) Seed(ctx context.Context, fx Fixtures) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) > 0 || len(s.categories) > 0 {
		return nil
	}

	s.categories = append([]models.Category(nil), fx.Categories...)
	for _, c := range fx.Categories {
		s.lastCategoryID = max(s.lastCategoryID, c.ID)
	}

	s.tasks = make([]models.Task, 0, len(fx.Tasks))
	for _, t := range fx.Tasks {
		s.tasks = append(s.tasks, t.Clone())
		s.lastTaskID = max(s.lastTaskID, t.ID)
	}

	return nil
}

func (s *MemoryStore) taskIndex(id int64) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) filterTasks(keep func(*models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, 0)
	for i := range s.tasks {
		if keep(&s.tasks[i]) {
			out = append(out, s.tasks[i].Clone())
		}
	}
	return out
}

// ListTasks returns every task in insertion order.
func (s *MemoryStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	s.delay("ListTasks")
	return s.filterTasks(func(*models.Task) bool { return true }), nil
}

// GetTask retrieves a task by ID.
func (s *MemoryStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	s.delay("GetTask")
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.taskIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	t := s.tasks[i].Clone()
	return &t, nil
}

// CreateTask appends a task with a fresh id. New tasks always start incomplete.
func (s *MemoryStore) CreateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	s.delay("CreateTask")
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for _, t := range s.tasks {
		maxID = max(maxID, t.ID)
	}
	// Ids are never reused, even after the highest one was deleted.
	s.lastTaskID = max(maxID, s.lastTaskID) + 1

	now := s.now()
	task = task.Clone()
	task.ID = s.lastTaskID
	task.Completed = false
	task.CompletedAt = nil
	task.CreatedAt = now
	task.UpdatedAt = now

	s.tasks = append(s.tasks, task)
	out := task.Clone()
	return &out, nil
}

// UpdateTask merges patch into the task and refreshes UpdatedAt.
func (s *MemoryStore) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	s.delay("UpdateTask")
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}

	now := s.now()
	t := s.tasks[i].Clone()
	if err := patch.Apply(&t, now); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	t.UpdatedAt = now
	s.tasks[i] = t

	out := t.Clone()
	return &out, nil
}

// DeleteTask removes a task and returns it.
func (s *MemoryStore) DeleteTask(ctx context.Context, id int64) (*models.Task, error) {
	s.delay("DeleteTask")
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}

	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return &removed, nil
}

// ToggleTaskComplete flips the completed status of a task.
func (s *MemoryStore) ToggleTaskComplete(ctx context.Context, id int64) (*models.Task, error) {
	s.delay("ToggleTaskComplete")
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}

	now := s.now()
	t := &s.tasks[i]
	t.SetCompleted(!t.Completed, now)
	t.UpdatedAt = now

	out := t.Clone()
	return &out, nil
}

// TodayTasks returns incomplete tasks due on ref.
func (s *MemoryStore) TodayTasks(ctx context.Context, ref models.Date) ([]models.Task, error) {
	s.delay("TodayTasks")
	return s.filterTasks(func(t *models.Task) bool { return views.IsToday(t, ref) }), nil
}

// UpcomingTasks returns incomplete tasks due after ref.
func (s *MemoryStore) UpcomingTasks(ctx context.Context, ref models.Date) ([]models.Task, error) {
	s.delay("UpcomingTasks")
	return s.filterTasks(func(t *models.Task) bool { return views.IsUpcoming(t, ref) }), nil
}

// OverdueTasks returns incomplete tasks due before ref.
func (s *MemoryStore) OverdueTasks(ctx context.Context, ref models.Date) ([]models.Task, error) {
	s.delay("OverdueTasks")
	return s.filterTasks(func(t *models.Task) bool { return views.IsOverdue(t, ref) }), nil
}

// CompletedTasks returns every completed task.
func (s *MemoryStore) CompletedTasks(ctx context.Context) ([]models.Task, error) {
	s.delay("CompletedTasks")
	return s.filterTasks(views.IsCompleted), nil
}

// TasksByCategory returns the tasks that reference categoryID.
func (s *MemoryStore) TasksByCategory(ctx context.Context, categoryID int64) ([]models.Task, error) {
	s.delay("TasksByCategory")
	return s.filterTasks(func(t *models.Task) bool { return t.CategoryID == categoryID }), nil
}

// SearchTasks returns tasks whose title or description contains query, ignoring case.
func (s *MemoryStore) SearchTasks(ctx context.Context, query string) ([]models.Task, error) {
	s.delay("SearchTasks")
	return s.filterTasks(func(t *models.Task) bool { return views.MatchesSearch(t, query) }), nil
}

func (s *MemoryStore) categoryIndex(id int64) int {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return i
		}
	}
	return -1
}

// ListCategories returns every category in insertion order.
func (s *MemoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.delay("ListCategories")
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Category{}, s.categories...), nil
}

// GetCategory retrieves a category by ID.
func (s *MemoryStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	s.delay("GetCategory")
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.categoryIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	c := s.categories[i]
	return &c, nil
}

// CreateCategory appends a category with a fresh id and a zero task count.
func (s *MemoryStore) CreateCategory(ctx context.Context, category models.Category) (*models.Category, error) {
	s.delay("CreateCategory")
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for _, c := range s.categories {
		maxID = max(maxID, c.ID)
	}
	s.lastCategoryID = max(maxID, s.lastCategoryID) + 1

	category.ID = s.lastCategoryID
	category.TaskCount = 0
	s.categories = append(s.categories, category)
	return &category, nil
}

// UpdateCategory merges patch into the category.
func (s *MemoryStore) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	s.delay("UpdateCategory")
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	patch.Apply(&s.categories[i])
	c := s.categories[i]
	return &c, nil
}

// DeleteCategory removes a category. Tasks referencing it are left alone.
func (s *MemoryStore) DeleteCategory(ctx context.Context, id int64) (*models.Category, error) {
	s.delay("DeleteCategory")
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	removed := s.categories[i]
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	return &removed, nil
}

// UpdateCategoryTaskCount overwrites the denormalized task counter.
func (s *MemoryStore) UpdateCategoryTaskCount(ctx context.Context, id int64, count int) (*models.Category, error) {
	s.delay("UpdateCategoryTaskCount")
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	s.categories[i].TaskCount = count
	c := s.categories[i]
	return &c, nil
}
