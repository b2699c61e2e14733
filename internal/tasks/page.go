package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"taskdesk/internal/models"
	"taskdesk/internal/store"
	"taskdesk/internal/views"
)

// maxCachedRefs bounds how many reference dates a Page keeps subsets for.
const maxCachedRefs = 8

// Subsets maps each cached view to its tasks.
type Subsets map[views.Kind][]models.Task

func (s Subsets) clone() Subsets {
	out := make(Subsets, len(s))
	for kind, tasks := range s {
		out[kind] = cloneTasks(tasks)
	}
	return out
}

type cachedRef struct {
	subsets Subsets
	used    uint64
}

// pendingLoad collects the events published while a load is querying the store.
type pendingLoad struct {
	events []Event
}

// Page holds locally cached view subsets, one set per reference date. A set
// is loaded from the store on first use and afterwards patched from Manager
// events without going back to the store.
type Page struct {
	store store.Store
	log   *slog.Logger
	kinds []views.Kind
	group singleflight.Group

	mu       sync.Mutex
	refs     map[models.Date]*cachedRef
	pinned   models.Date
	tick     uint64
	inflight map[*pendingLoad]struct{}
	errMsg   string
}

// NewPage creates a page caching the given views.
func NewPage(s store.Store, log *slog.Logger, kinds ...views.Kind) *Page {
	return &Page{
		store:    s,
		log:      log,
		kinds:    kinds,
		refs:     make(map[models.Date]*cachedRef),
		inflight: make(map[*pendingLoad]struct{}),
	}
}

func (p *Page) query(ctx context.Context, kind views.Kind, ref models.Date) ([]models.Task, error) {
	switch kind {
	case views.KindToday:
		return p.store.TodayTasks(ctx, ref)
	case views.KindOverdue:
		return p.store.OverdueTasks(ctx, ref)
	case views.KindUpcoming:
		return p.store.UpcomingTasks(ctx, ref)
	case views.KindCompleted:
		return p.store.CompletedTasks(ctx)
	default:
		return nil, fmt.Errorf("unknown view %q", kind)
	}
}

// Pin keeps the subsets for ref cached no matter how many other dates are
// requested. Callers pin the current day.
func (p *Page) Pin(ref models.Date) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pinned = ref
}

// Load fetches every subset for ref from the store and replaces the cached
// set. Events published while the queries run are replayed over the results
// before they are stored. Concurrent loads of the same ref share one fetch.
func (p *Page) Load(ctx context.Context, ref models.Date) error {
	_, err := p.load(ctx, ref)
	return err
}

func (p *Page) load(ctx context.Context, ref models.Date) (Subsets, error) {
	v, err, _ := p.group.Do(ref.String(), func() (any, error) {
		return p.fetch(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return v.(Subsets).clone(), nil
}

func (p *Page) fetch(ctx context.Context, ref models.Date) (Subsets, error) {
	pending := &pendingLoad{}
	p.mu.Lock()
	p.inflight[pending] = struct{}{}
	p.mu.Unlock()

	results := make([][]models.Task, len(p.kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range p.kinds {
		g.Go(func() error {
			tasks, err := p.query(gctx, kind, ref)
			if err != nil {
				return fmt.Errorf("load %s: %w", kind, err)
			}
			results[i] = tasks
			return nil
		})
	}
	err := g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inflight, pending)
	if err != nil {
		p.log.Error("page load failed", "ref", ref, "views", p.kinds, "error", err)
		p.errMsg = msgLoadPage
		return nil, &OperationError{Message: msgLoadPage, Err: err}
	}
	p.errMsg = ""

	subsets := make(Subsets, len(p.kinds))
	for i, kind := range p.kinds {
		subsets[kind] = results[i]
	}
	for _, e := range pending.events {
		p.patch(subsets, ref, e)
	}

	p.tick++
	p.refs[ref] = &cachedRef{subsets: subsets, used: p.tick}
	p.evict()
	return subsets.clone(), nil
}

// evict drops the least recently used dates beyond maxCachedRefs, never the
// pinned one.
func (p *Page) evict() {
	for len(p.refs) > maxCachedRefs {
		var (
			oldest models.Date
			found  bool
		)
		for ref, c := range p.refs {
			if ref == p.pinned {
				continue
			}
			if !found || c.used < p.refs[oldest].used {
				oldest, found = ref, true
			}
		}
		if !found {
			return
		}
		delete(p.refs, oldest)
	}
}

// Ensure loads the subsets for ref unless they are already cached.
func (p *Page) Ensure(ctx context.Context, ref models.Date) error {
	_, err := p.Snapshot(ctx, ref)
	return err
}

// Snapshot returns a copy of every cached subset for ref, loading them first
// when needed. All subsets in the result belong to ref.
func (p *Page) Snapshot(ctx context.Context, ref models.Date) (Subsets, error) {
	p.mu.Lock()
	if c, ok := p.refs[ref]; ok {
		p.tick++
		c.used = p.tick
		out := c.subsets.clone()
		p.mu.Unlock()
		return out, nil
	}
	p.mu.Unlock()

	return p.load(ctx, ref)
}

// Tasks returns a copy of the cached subset for kind at ref, or nil when ref
// is not cached.
func (p *Page) Tasks(ref models.Date, kind views.Kind) []models.Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.refs[ref]
	if !ok {
		return nil
	}
	return cloneTasks(c.subsets[kind])
}

// Apply patches every cached set for one change and records it for loads
// that are still running. A task that still satisfies a view's predicate
// keeps its position; one that newly satisfies it is appended; one that no
// longer does is removed.
func (p *Page) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ref, c := range p.refs {
		p.patch(c.subsets, ref, e)
	}
	for pending := range p.inflight {
		pending.events = append(pending.events, e)
	}
}

// patch applies e to subsets computed for ref. It is idempotent, so replaying
// an event the store results already reflect changes nothing.
func (p *Page) patch(subsets Subsets, ref models.Date, e Event) {
	for _, kind := range p.kinds {
		subset := subsets[kind]
		idx := indexOf(subset, e.TaskID)

		switch e.Kind {
		case EventCreated, EventUpdated:
			if e.Task == nil {
				continue
			}
			match := views.Matches(kind, e.Task, ref)
			switch {
			case match && idx >= 0:
				subset[idx] = e.Task.Clone()
			case match:
				subset = append(subset, e.Task.Clone())
			case idx >= 0:
				subset = slices.Delete(subset, idx, idx+1)
			}
		case EventDeleted:
			if idx >= 0 {
				subset = slices.Delete(subset, idx, idx+1)
			}
		}
		subsets[kind] = subset
	}
}

// PageState is a snapshot of a Page's bookkeeping.
type PageState struct {
	Refs    []models.Date `json:"refs"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error"`
}

func (p *Page) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()

	refs := make([]models.Date, 0, len(p.refs))
	for ref := range p.refs {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, models.Date.Compare)
	return PageState{Refs: refs, Loading: len(p.inflight) > 0, Error: p.errMsg}
}

func indexOf(tasks []models.Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
