package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"taskdesk/internal/models"
	"taskdesk/internal/store"
	"taskdesk/internal/views"
)

var (
	testRef = models.MustParseDate("2024-05-10")
	testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func due(offset int) *models.Date {
	d := testRef.AddDays(offset)
	return &d
}

func testFixtures() store.Fixtures {
	created := testNow.Add(-48 * time.Hour)
	done := testNow.Add(-24 * time.Hour)
	return store.Fixtures{
		Categories: []models.Category{
			{ID: 1, Name: "Personal", Icon: "user", Color: "#3b82f6"},
			{ID: 2, Name: "Work", Icon: "briefcase", Color: "#ef4444"},
		},
		Tasks: []models.Task{
			{ID: 1, Title: "Pay rent", CategoryID: 1, Priority: models.PriorityHigh, DueDate: due(0), CreatedAt: created, UpdatedAt: created},
			{ID: 2, Title: "Review PR", CategoryID: 2, Priority: models.PriorityMedium, DueDate: due(-1), CreatedAt: created, UpdatedAt: created},
			{ID: 3, Title: "Plan sprint", CategoryID: 2, Priority: models.PriorityLow, DueDate: due(2), CreatedAt: created, UpdatedAt: created},
			{ID: 4, Title: "Renew passport", CategoryID: 1, Priority: models.PriorityMedium, DueDate: due(-3), Completed: true, CompletedAt: &done, CreatedAt: created, UpdatedAt: created},
			{ID: 5, Title: "Read book", CategoryID: 1, Priority: models.PriorityLow, CreatedAt: created, UpdatedAt: created},
		},
	}
}

func setupStore(t *testing.T) *store.MemoryStore {
	t.Helper()

	s := store.NewMemoryStore(store.WithClock(func() time.Time { return testNow }))
	if err := s.Seed(context.Background(), testFixtures()); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return s
}

func setupManager(t *testing.T, s store.Store) *Manager {
	t.Helper()

	m := NewManager(s, discardLogger())
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return m
}

// failingStore rejects the operations listed in fail and delegates the rest.
type failingStore struct {
	store.Store
	fail       map[string]bool
	failDelete map[int64]bool
}

var errBackend = errors.New("backend unavailable")

func (s *failingStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	if s.fail["ListTasks"] {
		return nil, errBackend
	}
	return s.Store.ListTasks(ctx)
}

func (s *failingStore) CreateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	if s.fail["CreateTask"] {
		return nil, errBackend
	}
	return s.Store.CreateTask(ctx, task)
}

func (s *failingStore) DeleteTask(ctx context.Context, id int64) (*models.Task, error) {
	if s.failDelete[id] {
		return nil, errBackend
	}
	return s.Store.DeleteTask(ctx, id)
}

func (s *failingStore) UpcomingTasks(ctx context.Context, ref models.Date) ([]models.Task, error) {
	if s.fail["UpcomingTasks"] {
		return nil, errBackend
	}
	return s.Store.UpcomingTasks(ctx, ref)
}

func (s *failingStore) UpdateCategoryTaskCount(ctx context.Context, id int64, count int) (*models.Category, error) {
	if s.fail["UpdateCategoryTaskCount"] {
		return nil, errBackend
	}
	return s.Store.UpdateCategoryTaskCount(ctx, id, count)
}

func taskIDs(tasks []models.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestManager_Load(t *testing.T) {
	m := setupManager(t, setupStore(t))

	state := m.State()
	if state.Loading {
		t.Error("expected loading to be false after Load")
	}
	if state.Error != "" {
		t.Errorf("expected no error, got %q", state.Error)
	}
	if len(state.Tasks) != 5 {
		t.Errorf("expected 5 tasks, got %d", len(state.Tasks))
	}
}

func TestManager_LoadFailureKeepsTasks(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), fail: map[string]bool{}}
	m := setupManager(t, fs)

	fs.fail["ListTasks"] = true
	err := m.Load(context.Background())

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
	if opErr.Error() != msgLoadTasks {
		t.Errorf("expected message %q, got %q", msgLoadTasks, opErr.Error())
	}
	if !errors.Is(err, errBackend) {
		t.Error("expected cause to be preserved")
	}

	state := m.State()
	if state.Error != msgLoadTasks {
		t.Errorf("expected state error %q, got %q", msgLoadTasks, state.Error)
	}
	if len(state.Tasks) != 5 {
		t.Errorf("expected previous tasks to be kept, got %d", len(state.Tasks))
	}
}

func TestManager_Create(t *testing.T) {
	m := setupManager(t, setupStore(t))

	var events []Event
	m.Subscribe(func(e Event) { events = append(events, e) })

	created, err := m.Create(context.Background(), models.Task{Title: "Buy milk", CategoryID: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != 6 {
		t.Errorf("expected id 6, got %d", created.ID)
	}
	if created.Priority != models.PriorityMedium {
		t.Errorf("expected default priority medium, got %q", created.Priority)
	}
	if len(m.Tasks()) != 6 {
		t.Errorf("expected 6 tasks, got %d", len(m.Tasks()))
	}
	if len(events) != 1 || events[0].Kind != EventCreated || events[0].TaskID != 6 {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestManager_CreateValidation(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), fail: map[string]bool{}}
	m := setupManager(t, fs)
	// Any store call would fail, so an error other than ValidationError
	// means the task was dispatched.
	fs.fail["CreateTask"] = true

	tests := []struct {
		name  string
		task  models.Task
		field string
	}{
		{name: "empty title", task: models.Task{Title: "   ", CategoryID: 1}, field: "title"},
		{name: "no category", task: models.Task{Title: "Something"}, field: "categoryId"},
		{name: "bad priority", task: models.Task{Title: "Something", CategoryID: 1, Priority: "urgent"}, field: "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(context.Background(), tt.task)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, verr.Fields)
			}
		})
	}
}

func TestManager_CreateFailure(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), fail: map[string]bool{"CreateTask": true}}
	m := setupManager(t, fs)

	_, err := m.Create(context.Background(), models.Task{Title: "Buy milk", CategoryID: 1})
	if err == nil || err.Error() != msgCreateTask {
		t.Fatalf("expected %q, got %v", msgCreateTask, err)
	}
	if len(m.Tasks()) != 5 {
		t.Errorf("expected collection unchanged, got %d tasks", len(m.Tasks()))
	}
}

func TestManager_QuickAdd(t *testing.T) {
	tests := []struct {
		name     string
		fallback func() int64
		want     int64
	}{
		{name: "first category", fallback: func() int64 { return 2 }, want: 2},
		{name: "no categories", fallback: func() int64 { return 0 }, want: 1},
		{name: "no source", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupManager(t, setupStore(t))
			if tt.fallback != nil {
				m.SetDefaultCategory(tt.fallback)
			}

			created, err := m.QuickAdd(context.Background(), models.Task{Title: "  Call mom  "})
			if err != nil {
				t.Fatalf("QuickAdd failed: %v", err)
			}
			if created.Title != "Call mom" {
				t.Errorf("expected trimmed title, got %q", created.Title)
			}
			if created.CategoryID != tt.want {
				t.Errorf("expected category %d, got %d", tt.want, created.CategoryID)
			}
		})
	}
}

func TestManager_Update(t *testing.T) {
	m := setupManager(t, setupStore(t))

	title := "Pay rent today"
	updated, err := m.Update(context.Background(), 1, models.TaskPatch{Title: &title})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != title {
		t.Errorf("expected title %q, got %q", title, updated.Title)
	}

	for _, task := range m.Tasks() {
		if task.ID == 1 && task.Title != title {
			t.Errorf("expected cached title %q, got %q", title, task.Title)
		}
	}
}

func TestManager_UpdateValidation(t *testing.T) {
	m := setupManager(t, setupStore(t))

	empty := ""
	_, err := m.Update(context.Background(), 1, models.TaskPatch{Title: &empty})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	bad := "tomorrow"
	_, err = m.Update(context.Background(), 1, models.TaskPatch{DueDate: &bad})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bad date, got %v", err)
	}
}

// countingStore counts UpdateTask calls.
type countingStore struct {
	store.Store
	updates int
}

func (s *countingStore) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	s.updates++
	return s.Store.UpdateTask(ctx, id, patch)
}

func TestManager_UpdateValidatesUncachedTask(t *testing.T) {
	cs := &countingStore{Store: setupStore(t)}
	// Not loaded, so no task is cached.
	m := NewManager(cs, discardLogger())

	empty := ""
	zero := int64(0)
	tests := []struct {
		name  string
		patch models.TaskPatch
		field string
	}{
		{"empty title", models.TaskPatch{Title: &empty}, "title"},
		{"bad category", models.TaskPatch{CategoryID: &zero}, "categoryId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Update(context.Background(), 1, tt.patch)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, verr.Fields)
			}
		})
	}
	if cs.updates != 0 {
		t.Errorf("expected no store updates, got %d", cs.updates)
	}
}

func TestManager_NotFound(t *testing.T) {
	m := setupManager(t, setupStore(t))
	ctx := context.Background()

	title := "Ghost"
	got, err := m.Update(ctx, 999, models.TaskPatch{Title: &title})
	if err != nil || got != nil {
		t.Errorf("Update(999) = %v, %v; want nil, nil", got, err)
	}

	got, err = m.ToggleComplete(ctx, 999)
	if err != nil || got != nil {
		t.Errorf("ToggleComplete(999) = %v, %v; want nil, nil", got, err)
	}

	if err := m.Delete(ctx, 999); err != nil {
		t.Errorf("Delete(999) = %v, want nil", err)
	}
	if len(m.Tasks()) != 5 {
		t.Errorf("expected collection unchanged, got %d tasks", len(m.Tasks()))
	}
}

func TestManager_ToggleComplete(t *testing.T) {
	m := setupManager(t, setupStore(t))

	toggled, err := m.ToggleComplete(context.Background(), 1)
	if err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if !toggled.Completed || toggled.CompletedAt == nil {
		t.Errorf("expected task to be completed with a timestamp, got %+v", toggled)
	}

	toggled, err = m.ToggleComplete(context.Background(), 1)
	if err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if toggled.Completed {
		t.Error("expected second toggle to reopen the task")
	}
}

func TestManager_Delete(t *testing.T) {
	m := setupManager(t, setupStore(t))

	var events []Event
	unsubscribe := m.Subscribe(func(e Event) { events = append(events, e) })

	if err := m.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !sameIDs(taskIDs(m.Tasks()), []int64{1, 3, 4, 5}) {
		t.Errorf("unexpected tasks after delete: %v", taskIDs(m.Tasks()))
	}

	unsubscribe()
	if err := m.Delete(context.Background(), 3); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventDeleted || events[0].TaskID != 2 {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestManager_ClearCompleted(t *testing.T) {
	s := setupStore(t)
	m := setupManager(t, s)
	ctx := context.Background()

	if _, err := m.ToggleComplete(ctx, 3); err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}

	removed, err := m.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if !sameIDs(taskIDs(m.Tasks()), []int64{1, 2, 5}) {
		t.Errorf("unexpected tasks: %v", taskIDs(m.Tasks()))
	}

	completed, _ := s.CompletedTasks(ctx)
	if len(completed) != 0 {
		t.Errorf("expected store to hold no completed tasks, got %d", len(completed))
	}
}

func TestManager_ClearCompletedPartialFailure(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), failDelete: map[int64]bool{4: true}}
	m := setupManager(t, fs)
	ctx := context.Background()

	if _, err := m.ToggleComplete(ctx, 3); err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}

	removed, err := m.ClearCompleted(ctx)
	if err == nil || err.Error() != msgClearCompleted {
		t.Fatalf("expected %q, got %v", msgClearCompleted, err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	// Task 3 was deleted and stays deleted; task 4 remains.
	if !sameIDs(taskIDs(m.Tasks()), []int64{1, 2, 4, 5}) {
		t.Errorf("unexpected tasks: %v", taskIDs(m.Tasks()))
	}
}

func TestManager_ReturnsCopies(t *testing.T) {
	m := setupManager(t, setupStore(t))

	tasks := m.Tasks()
	tasks[0].Title = "changed"
	*tasks[0].DueDate = tasks[0].DueDate.AddDays(5)

	fresh := m.Tasks()
	if fresh[0].Title == "changed" {
		t.Error("expected title change not to leak into the manager")
	}
	if *fresh[0].DueDate != testRef {
		t.Errorf("expected due date %s, got %s", testRef, fresh[0].DueDate)
	}
}

func TestManager_ConcurrentMutations(t *testing.T) {
	m := setupManager(t, setupStore(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Create(ctx, models.Task{Title: "Concurrent", CategoryID: 1}); err != nil {
				t.Errorf("Create failed: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, task := range m.Tasks() {
		if seen[task.ID] {
			t.Errorf("duplicate id %d", task.ID)
		}
		seen[task.ID] = true
	}
	if len(seen) != 15 {
		t.Errorf("expected 15 tasks, got %d", len(seen))
	}
}

func TestCategoryManager(t *testing.T) {
	s := setupStore(t)
	cm := NewCategoryManager(s, discardLogger())
	ctx := context.Background()

	if err := cm.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cm.FirstID() != 1 {
		t.Errorf("expected first id 1, got %d", cm.FirstID())
	}

	created, err := cm.Create(ctx, models.Category{Name: "Errands", Icon: "cart", Color: "#10b981", TaskCount: 9})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != 3 || created.TaskCount != 0 {
		t.Errorf("unexpected created category: %+v", created)
	}

	if _, err := cm.Create(ctx, models.Category{}); err == nil {
		t.Error("expected validation error for empty name")
	}

	name := "Chores"
	updated, err := cm.Update(ctx, 3, models.CategoryPatch{Name: &name})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != name || updated.Icon != "cart" {
		t.Errorf("unexpected updated category: %+v", updated)
	}

	missing, err := cm.Update(ctx, 99, models.CategoryPatch{Name: &name})
	if err != nil || missing != nil {
		t.Errorf("Update(99) = %v, %v; want nil, nil", missing, err)
	}

	if err := cm.Delete(ctx, 3); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(cm.Categories()) != 2 {
		t.Errorf("expected 2 categories, got %d", len(cm.Categories()))
	}

	// Deleting a category leaves its tasks alone.
	if err := cm.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	work, _ := s.TasksByCategory(ctx, 2)
	if len(work) != 2 {
		t.Errorf("expected 2 tasks still in category 2, got %d", len(work))
	}
}

func TestCategoryManager_RefreshTaskCounts(t *testing.T) {
	s := setupStore(t)
	m := setupManager(t, s)
	cm := NewCategoryManager(s, discardLogger())
	ctx := context.Background()

	if err := cm.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cm.RefreshTaskCounts(ctx, m.Tasks()); err != nil {
		t.Fatalf("RefreshTaskCounts failed: %v", err)
	}

	want := map[int64]int{1: 2, 2: 2}
	for _, c := range cm.Categories() {
		if c.TaskCount != want[c.ID] {
			t.Errorf("category %d: expected count %d, got %d", c.ID, want[c.ID], c.TaskCount)
		}
	}

	stored, _ := s.GetCategory(ctx, 1)
	if stored.TaskCount != 2 {
		t.Errorf("expected stored count 2, got %d", stored.TaskCount)
	}
}

func TestCategoryManager_RefreshTaskCountsFailure(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), fail: map[string]bool{"UpdateCategoryTaskCount": true}}
	cm := NewCategoryManager(fs, discardLogger())
	ctx := context.Background()

	if err := cm.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	err := cm.RefreshTaskCounts(ctx, nil)
	if err == nil || err.Error() != msgRefreshTaskCounts {
		t.Fatalf("expected %q, got %v", msgRefreshTaskCounts, err)
	}
	if cm.State().Error != msgRefreshTaskCounts {
		t.Errorf("expected state error %q, got %q", msgRefreshTaskCounts, cm.State().Error)
	}
}

func setupPage(t *testing.T, s store.Store, m *Manager) *Page {
	t.Helper()

	p := NewPage(s, discardLogger(), views.KindToday, views.KindOverdue, views.KindUpcoming, views.KindCompleted)
	if err := p.Load(context.Background(), testRef); err != nil {
		t.Fatalf("page Load failed: %v", err)
	}
	m.Subscribe(p.Apply)
	return p
}

// gatedStore holds the first TodayTasks result until release is closed, so a
// test can change the store after the query has read it.
type gatedStore struct {
	store.Store
	read    chan struct{}
	release chan struct{}
}

func (s *gatedStore) TodayTasks(ctx context.Context, ref models.Date) ([]models.Task, error) {
	tasks, err := s.Store.TodayTasks(ctx, ref)
	close(s.read)
	<-s.release
	return tasks, err
}

func TestPage_Load(t *testing.T) {
	s := setupStore(t)
	p := setupPage(t, s, setupManager(t, s))

	tests := []struct {
		kind views.Kind
		want []int64
	}{
		{views.KindToday, []int64{1}},
		{views.KindOverdue, []int64{2}},
		{views.KindUpcoming, []int64{3}},
		{views.KindCompleted, []int64{4}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := taskIDs(p.Tasks(testRef, tt.kind)); !sameIDs(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if refs := p.State().Refs; len(refs) != 1 || refs[0] != testRef {
		t.Errorf("expected cached refs [%s], got %v", testRef, refs)
	}
}

func TestPage_ToggleMovesBetweenViews(t *testing.T) {
	s := setupStore(t)
	m := setupManager(t, s)
	p := setupPage(t, s, m)
	ctx := context.Background()

	if _, err := m.ToggleComplete(ctx, 1); err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindToday)); len(got) != 0 {
		t.Errorf("expected today to be empty, got %v", got)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindCompleted)); !sameIDs(got, []int64{4, 1}) {
		t.Errorf("expected completed [4 1], got %v", got)
	}

	if _, err := m.ToggleComplete(ctx, 4); err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindOverdue)); !sameIDs(got, []int64{2, 4}) {
		t.Errorf("expected overdue [2 4], got %v", got)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindCompleted)); !sameIDs(got, []int64{1}) {
		t.Errorf("expected completed [1], got %v", got)
	}
}

func TestPage_UpdateKeepsPosition(t *testing.T) {
	s := setupStore(t)
	m := setupManager(t, s)
	p := setupPage(t, s, m)
	ctx := context.Background()

	if _, err := m.Create(ctx, models.Task{Title: "Deploy", CategoryID: 2, DueDate: due(0)}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindToday)); !sameIDs(got, []int64{1, 6}) {
		t.Fatalf("expected today [1 6], got %v", got)
	}

	title := "Pay rent now"
	if _, err := m.Update(ctx, 1, models.TaskPatch{Title: &title}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	today := p.Tasks(testRef, views.KindToday)
	if !sameIDs(taskIDs(today), []int64{1, 6}) || today[0].Title != title {
		t.Errorf("expected task 1 updated in place, got %+v", today)
	}

	tomorrow := testRef.AddDays(1).String()
	if _, err := m.Update(ctx, 1, models.TaskPatch{DueDate: &tomorrow}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindToday)); !sameIDs(got, []int64{6}) {
		t.Errorf("expected today [6], got %v", got)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindUpcoming)); !sameIDs(got, []int64{3, 1}) {
		t.Errorf("expected upcoming [3 1], got %v", got)
	}

	if err := m.Delete(ctx, 6); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindToday)); len(got) != 0 {
		t.Errorf("expected today empty, got %v", got)
	}
}

func TestPage_DeleteRemovesFromEveryCachedDate(t *testing.T) {
	s := setupStore(t)
	m := setupManager(t, s)
	p := setupPage(t, s, m)
	ctx := context.Background()

	next := testRef.AddDays(1)
	if err := p.Ensure(ctx, next); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if got := taskIDs(p.Tasks(next, views.KindOverdue)); !sameIDs(got, []int64{1, 2}) {
		t.Fatalf("expected overdue [1 2] at %s, got %v", next, got)
	}

	if err := m.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if got := taskIDs(p.Tasks(testRef, views.KindOverdue)); len(got) != 0 {
		t.Errorf("expected overdue empty at %s, got %v", testRef, got)
	}
	if got := taskIDs(p.Tasks(next, views.KindOverdue)); !sameIDs(got, []int64{1}) {
		t.Errorf("expected overdue [1] at %s, got %v", next, got)
	}
	if got := taskIDs(m.Tasks()); !sameIDs(got, []int64{1, 3, 4, 5}) {
		t.Errorf("expected all tasks [1 3 4 5], got %v", got)
	}
	snap, err := p.Snapshot(ctx, testRef)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	for kind, tasks := range snap {
		if indexOf(tasks, 2) >= 0 {
			t.Errorf("deleted task still in %s", kind)
		}
	}
}

func TestPage_PatchesWithoutRefetch(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), fail: map[string]bool{}}
	m := setupManager(t, fs)
	p := setupPage(t, fs, m)

	// Reloading would fail from here on.
	fs.fail["UpcomingTasks"] = true

	if _, err := m.ToggleComplete(context.Background(), 3); err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindUpcoming)); len(got) != 0 {
		t.Errorf("expected upcoming empty, got %v", got)
	}
	if err := p.Ensure(context.Background(), testRef); err != nil {
		t.Errorf("Ensure for same ref should not reload, got %v", err)
	}
}

func TestPage_LoadFailure(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), fail: map[string]bool{"UpcomingTasks": true}}
	p := NewPage(fs, discardLogger(), views.KindToday, views.KindUpcoming)

	err := p.Load(context.Background(), testRef)
	if err == nil || err.Error() != msgLoadPage {
		t.Fatalf("expected %q, got %v", msgLoadPage, err)
	}
	state := p.State()
	if state.Error != msgLoadPage || state.Loading {
		t.Errorf("unexpected state: %+v", state)
	}
	if len(state.Refs) != 0 {
		t.Errorf("expected nothing cached after failed load, got %v", state.Refs)
	}
}

func TestPage_SnapshotKeepsOtherDates(t *testing.T) {
	s := setupStore(t)
	p := setupPage(t, s, setupManager(t, s))

	next := testRef.AddDays(2)
	snap, err := p.Snapshot(context.Background(), next)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if got := taskIDs(snap[views.KindToday]); !sameIDs(got, []int64{3}) {
		t.Errorf("expected today [3], got %v", got)
	}
	if got := taskIDs(snap[views.KindOverdue]); !sameIDs(got, []int64{1, 2}) {
		t.Errorf("expected overdue [1 2], got %v", got)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindToday)); !sameIDs(got, []int64{1}) {
		t.Errorf("expected today [1] at %s to survive, got %v", testRef, got)
	}
}

func TestPage_SnapshotIsCopy(t *testing.T) {
	s := setupStore(t)
	p := setupPage(t, s, setupManager(t, s))

	snap, err := p.Snapshot(context.Background(), testRef)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	snap[views.KindToday][0].Title = "changed"
	if got := p.Tasks(testRef, views.KindToday); got[0].Title == "changed" {
		t.Error("Snapshot shares memory with the cache")
	}
}

func TestPage_ConcurrentDates(t *testing.T) {
	s := setupStore(t)
	p := setupPage(t, s, setupManager(t, s))
	p.Pin(testRef)
	ctx := context.Background()

	fixtures := testFixtures().Tasks
	expect := func(kind views.Kind, ref models.Date) []int64 {
		var ids []int64
		for i := range fixtures {
			if views.Matches(kind, &fixtures[i], ref) {
				ids = append(ids, fixtures[i].ID)
			}
		}
		return ids
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		ref := testRef.AddDays(i%(maxCachedRefs+4) - 4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := p.Snapshot(ctx, ref)
			if err != nil {
				errs <- err
				return
			}
			for _, kind := range []views.Kind{views.KindToday, views.KindOverdue, views.KindUpcoming} {
				if got, want := taskIDs(snap[kind]), expect(kind, ref); !sameIDs(got, want) {
					errs <- fmt.Errorf("%s at %s: got %v, want %v", kind, ref, got, want)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if got := taskIDs(p.Tasks(testRef, views.KindToday)); !sameIDs(got, []int64{1}) {
		t.Errorf("expected pinned today [1], got %v", got)
	}
	if refs := p.State().Refs; len(refs) > maxCachedRefs {
		t.Errorf("expected at most %d cached dates, got %d", maxCachedRefs, len(refs))
	}
}

func TestPage_PinnedDateSurvivesEviction(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), fail: map[string]bool{}}
	p := setupPage(t, fs, setupManager(t, fs))
	p.Pin(testRef)
	ctx := context.Background()

	for i := 1; i <= maxCachedRefs*2; i++ {
		if err := p.Ensure(ctx, testRef.AddDays(i)); err != nil {
			t.Fatalf("Ensure failed: %v", err)
		}
	}
	refs := p.State().Refs
	if len(refs) != maxCachedRefs {
		t.Fatalf("expected %d cached dates, got %v", maxCachedRefs, refs)
	}
	if refs[0] != testRef {
		t.Errorf("expected %s to stay cached, got %v", testRef, refs)
	}

	// A reload would fail, so the pinned date must be served from the cache.
	fs.fail["UpcomingTasks"] = true
	if _, err := p.Snapshot(ctx, testRef); err != nil {
		t.Errorf("expected cached snapshot, got %v", err)
	}
	if err := p.Ensure(ctx, testRef.AddDays(1)); err == nil {
		t.Error("expected evicted date to reload and fail")
	}
}

func TestPage_ReplaysChangesDuringLoad(t *testing.T) {
	gs := &gatedStore{Store: setupStore(t), read: make(chan struct{}), release: make(chan struct{})}
	m := setupManager(t, gs)
	p := NewPage(gs, discardLogger(), views.KindToday, views.KindOverdue, views.KindCompleted)
	m.Subscribe(p.Apply)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- p.Load(ctx, testRef) }()

	<-gs.read
	if !p.State().Loading {
		t.Error("expected page to report loading")
	}
	if err := m.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	created, err := m.Create(ctx, models.Task{Title: "Deploy", CategoryID: 2, DueDate: due(0)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.ToggleComplete(ctx, 2); err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	close(gs.release)

	if err := <-done; err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindToday)); !sameIDs(got, []int64{created.ID}) {
		t.Errorf("expected today [%d], got %v", created.ID, got)
	}
	if got := taskIDs(p.Tasks(testRef, views.KindOverdue)); len(got) != 0 {
		t.Errorf("expected overdue empty, got %v", got)
	}
	// The completed query may run before or after the toggle, so only
	// membership is fixed.
	completed := taskIDs(p.Tasks(testRef, views.KindCompleted))
	slices.Sort(completed)
	if !sameIDs(completed, []int64{2, 4}) {
		t.Errorf("expected completed {2 4}, got %v", completed)
	}
	if p.State().Loading {
		t.Error("expected loading to be cleared")
	}
}
