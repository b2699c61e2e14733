package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"taskdesk/internal/models"
	"taskdesk/internal/store"
)

// State is a snapshot of a Manager.
type State struct {
	Tasks   []models.Task `json:"tasks"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error"`
}

// Manager owns the task collection and its mutations.
type Manager struct {
	store store.Store
	log   *slog.Logger
	subs  subscribers

	// defaultCategory picks the category for quick-added tasks.
	defaultCategory func() int64

	mu      sync.RWMutex
	tasks   []models.Task
	loading bool
	errMsg  string
}

// NewManager creates a Manager. Call Load to populate it.
func NewManager(s store.Store, log *slog.Logger) *Manager {
	return &Manager{store: s, log: log}
}

// SetDefaultCategory sets the category source used by QuickAdd.
func (m *Manager) SetDefaultCategory(fn func() int64) {
	m.defaultCategory = fn
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. fn runs on the goroutine that performed the mutation.
func (m *Manager) Subscribe(fn func(Event)) func() {
	return m.subs.add(fn)
}

// State returns a copy of the current collection, loading flag and error message.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return State{Tasks: cloneTasks(m.tasks), Loading: m.loading, Error: m.errMsg}
}

// Tasks returns a copy of the current collection.
func (m *Manager) Tasks() []models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return cloneTasks(m.tasks)
}

func (m *Manager) fail(op, msg string, err error) error {
	m.log.Error("task operation failed", "op", op, "error", err)

	m.mu.Lock()
	m.errMsg = msg
	m.mu.Unlock()

	return &OperationError{Message: msg, Err: err}
}

// Load replaces the collection with the store's contents. On failure the
// previous collection is kept.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	m.loading = true
	m.errMsg = ""
	m.mu.Unlock()

	tasks, err := m.store.ListTasks(ctx)

	m.mu.Lock()
	m.loading = false
	if err == nil {
		m.tasks = tasks
	}
	m.mu.Unlock()

	if err != nil {
		return m.fail("load", msgLoadTasks, err)
	}

	m.subs.publish(Event{Kind: EventLoaded})
	return nil
}

// Create validates task and stores it. A *models.ValidationError is returned
// before anything is sent to the store.
func (m *Manager) Create(ctx context.Context, task models.Task) (*models.Task, error) {
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	created, err := m.store.CreateTask(ctx, task)
	if err != nil {
		return nil, m.fail("create", msgCreateTask, err)
	}

	m.mu.Lock()
	m.tasks = append(m.tasks, created.Clone())
	m.mu.Unlock()

	m.subs.publish(Event{Kind: EventCreated, TaskID: created.ID, Task: cloneTask(created)})
	return created, nil
}

// QuickAdd creates a task from a title and optional fields, defaulting the
// category to the first known one (or 1) and the priority to medium.
func (m *Manager) QuickAdd(ctx context.Context, task models.Task) (*models.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.CategoryID == 0 {
		task.CategoryID = 1
		if m.defaultCategory != nil {
			if id := m.defaultCategory(); id > 0 {
				task.CategoryID = id
			}
		}
	}
	return m.Create(ctx, task)
}

// replace swaps the cached task with the same id.
func (m *Manager) replace(task *models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.tasks {
		if m.tasks[i].ID == task.ID {
			m.tasks[i] = task.Clone()
			return
		}
	}
}

// Update applies patch to a task. The patch is validated before anything is
// sent to the store. It returns nil, nil when the task does not exist.
func (m *Manager) Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated, err := m.store.UpdateTask(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, m.fail("update", msgUpdateTask, err)
	}

	m.replace(updated)
	m.subs.publish(Event{Kind: EventUpdated, TaskID: id, Task: cloneTask(updated)})
	return updated, nil
}

// ToggleComplete flips a task's completion. It returns nil, nil when the task does not exist.
func (m *Manager) ToggleComplete(ctx context.Context, id int64) (*models.Task, error) {
	updated, err := m.store.ToggleTaskComplete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, m.fail("toggle", msgUpdateTask, err)
	}

	m.replace(updated)
	m.subs.publish(Event{Kind: EventUpdated, TaskID: id, Task: cloneTask(updated)})
	return updated, nil
}

// Delete removes a task. Deleting a missing task is not an error.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	_, err := m.store.DeleteTask(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return m.fail("delete", msgDeleteTask, err)
	}

	m.mu.Lock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.subs.publish(Event{Kind: EventDeleted, TaskID: id})
	return nil
}

// ClearCompleted deletes every completed task concurrently and waits for all
// of them. If any deletion fails the batch fails; deletions that succeeded
// are not rolled back. It returns the number of tasks removed.
func (m *Manager) ClearCompleted(ctx context.Context) (int, error) {
	var ids []int64
	for _, t := range m.Tasks() {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		removed int
	)
	for _, id := range ids {
		g.Go(func() error {
			if err := m.Delete(ctx, id); err != nil {
				return err
			}
			mu.Lock()
			removed++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return removed, m.fail("clear completed", msgClearCompleted, err)
	}
	return removed, nil
}

func cloneTask(t *models.Task) *models.Task {
	c := t.Clone()
	return &c
}

func cloneTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
