package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"taskdesk/internal/config"
	"taskdesk/internal/store"
	"taskdesk/internal/tasks"
	"taskdesk/internal/views"
)

// app is the wired store and hooks shared by the serve and views commands.
type app struct {
	store      store.Store
	tasks      *tasks.Manager
	categories *tasks.CategoryManager
	page       *tasks.Page
}

func openStore(cfg config.StoreConfig, log *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		// Ensure data directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return store.NewSQLiteStore(cfg.DBPath, log)
	default:
		var opts []store.MemoryOption
		if cfg.SimulateLatency {
			opts = append(opts, store.WithLatency(store.DefaultLatency))
		}
		return store.NewMemoryStore(opts...), nil
	}
}

func loadFixtures(dir string) (store.Fixtures, error) {
	if dir == "" {
		return store.DefaultFixtures()
	}
	return store.LoadFixtures(os.DirFS(dir))
}

// newApp opens and seeds the store, then loads tasks and categories
// concurrently. The caller must close app.store.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	s, err := openStore(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	fx, err := loadFixtures(cfg.Store.FixturesDir)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	if err := s.Seed(ctx, fx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	a := &app{
		store:      s,
		tasks:      tasks.NewManager(s, log),
		categories: tasks.NewCategoryManager(s, log),
		page:       tasks.NewPage(s, log, views.KindToday, views.KindOverdue, views.KindUpcoming, views.KindCompleted),
	}
	a.tasks.SetDefaultCategory(a.categories.FirstID)
	a.tasks.Subscribe(a.page.Apply)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.tasks.Load(gctx) })
	g.Go(func() error { return a.categories.Load(gctx) })
	if err := g.Wait(); err != nil {
		s.Close()
		return nil, err
	}

	log.Info("store ready", "driver", cfg.Store.Driver, "tasks", len(a.tasks.Tasks()), "categories", len(a.categories.Categories()))
	return a, nil
}
