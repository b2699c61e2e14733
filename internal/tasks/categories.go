package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"taskdesk/internal/models"
	"taskdesk/internal/store"
)

// CategoryState is a snapshot of a CategoryManager.
type CategoryState struct {
	Categories []models.Category `json:"categories"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error"`
}

// CategoryManager owns the category collection.
type CategoryManager struct {
	store store.Store
	log   *slog.Logger

	mu         sync.RWMutex
	categories []models.Category
	loading    bool
	errMsg     string
}

func NewCategoryManager(s store.Store, log *slog.Logger) *CategoryManager {
	return &CategoryManager{store: s, log: log}
}

func (m *CategoryManager) fail(op, msg string, err error) error {
	m.log.Error("category operation failed", "op", op, "error", err)

	m.mu.Lock()
	m.errMsg = msg
	m.mu.Unlock()

	return &OperationError{Message: msg, Err: err}
}

func (m *CategoryManager) State() CategoryState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return CategoryState{Categories: cloneCategories(m.categories), Loading: m.loading, Error: m.errMsg}
}

func (m *CategoryManager) Categories() []models.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return cloneCategories(m.categories)
}

// FirstID returns the id of the first category, or 0 when there are none.
func (m *CategoryManager) FirstID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.categories) == 0 {
		return 0
	}
	return m.categories[0].ID
}

func (m *CategoryManager) Load(ctx context.Context) error {
	m.mu.Lock()
	m.loading = true
	m.errMsg = ""
	m.mu.Unlock()

	categories, err := m.store.ListCategories(ctx)

	m.mu.Lock()
	m.loading = false
	if err == nil {
		m.categories = categories
	}
	m.mu.Unlock()

	if err != nil {
		return m.fail("load", msgLoadCategories, err)
	}
	return nil
}

func (m *CategoryManager) Create(ctx context.Context, c models.Category) (*models.Category, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	created, err := m.store.CreateCategory(ctx, c)
	if err != nil {
		return nil, m.fail("create", msgCreateCategory, err)
	}

	m.mu.Lock()
	m.categories = append(m.categories, *created)
	m.mu.Unlock()

	return created, nil
}

func (m *CategoryManager) replace(c *models.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.categories {
		if m.categories[i].ID == c.ID {
			m.categories[i] = *c
			return
		}
	}
}

// Update applies patch to a category. It returns nil, nil when the category does not exist.
func (m *CategoryManager) Update(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	if patch.Name != nil {
		candidate := models.Category{Name: *patch.Name}
		if err := candidate.Validate(); err != nil {
			return nil, err
		}
	}

	updated, err := m.store.UpdateCategory(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, m.fail("update", msgUpdateCategory, err)
	}

	m.replace(updated)
	return updated, nil
}

// Delete removes a category. Tasks that reference it are left as they are.
func (m *CategoryManager) Delete(ctx context.Context, id int64) error {
	_, err := m.store.DeleteCategory(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return m.fail("delete", msgDeleteCategory, err)
	}

	m.mu.Lock()
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	return nil
}

// RefreshTaskCounts recomputes each category's number of incomplete tasks
// from tasks and writes the results to the store concurrently.
func (m *CategoryManager) RefreshTaskCounts(ctx context.Context, tasks []models.Task) error {
	active := make(map[int64]int)
	for _, t := range tasks {
		if !t.Completed {
			active[t.CategoryID]++
		}
	}

	categories := m.Categories()
	results := make([]*models.Category, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range categories {
		g.Go(func() error {
			updated, err := m.store.UpdateCategoryTaskCount(gctx, c.ID, active[c.ID])
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			results[i] = updated
			return err
		})
	}
	err := g.Wait()

	for _, c := range results {
		if c != nil {
			m.replace(c)
		}
	}
	if err != nil {
		return m.fail("refresh task counts", msgRefreshTaskCounts, err)
	}
	return nil
}

func cloneCategories(cs []models.Category) []models.Category {
	out := make([]models.Category, len(cs))
	copy(out, cs)
	return out
}
