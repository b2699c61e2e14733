package store

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	"taskdesk/internal/models"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// Fixtures is the seed data loaded at startup.
type Fixtures struct {
	Tasks      []models.Task
	Categories []models.Category
}

// DefaultFixtures returns the seed data embedded in the binary.
func DefaultFixtures() (Fixtures, error) {
	sub, err := fs.Sub(fixturesFS, "fixtures")
	if err != nil {
		return Fixtures{}, err
	}
	return LoadFixtures(sub)
}

// LoadFixtures reads tasks and categories from the root of fsys. Each
// collection may be stored as <name>.json, <name>.yaml or <name>.yml; a
// missing collection is empty.
func LoadFixtures(fsys fs.FS) (Fixtures, error) {
	var fx Fixtures
	if err := decodeFixture(fsys, "categories", &fx.Categories); err != nil {
		return Fixtures{}, err
	}
	if err := decodeFixture(fsys, "tasks", &fx.Tasks); err != nil {
		return Fixtures{}, err
	}
	if err := fx.Validate(); err != nil {
		return Fixtures{}, err
	}
	return fx, nil
}

func decodeFixture(fsys fs.FS, name string, v any) error {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		file := name + ext
		data, err := fs.ReadFile(fsys, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read fixture %s: %w", file, err)
		}

		if path.Ext(file) == ".json" {
			err = json.Unmarshal(data, v)
		} else {
			err = yaml.Unmarshal(data, v)
		}
		if err != nil {
			return fmt.Errorf("failed to parse fixture %s: %w", file, err)
		}
		return nil
	}
	return nil
}

// Validate checks id uniqueness and the completed/completedAt invariant.
// Category references are not checked; dangling ones are allowed.
func (fx Fixtures) Validate() error {
	seen := make(map[int64]bool)
	for _, c := range fx.Categories {
		if c.ID <= 0 {
			return fmt.Errorf("fixture category %q: id must be positive", c.Name)
		}
		if seen[c.ID] {
			return fmt.Errorf("fixture category %d: duplicate id", c.ID)
		}
		seen[c.ID] = true
	}

	seen = make(map[int64]bool)
	for _, t := range fx.Tasks {
		if t.ID <= 0 {
			return fmt.Errorf("fixture task %q: id must be positive", t.Title)
		}
		if seen[t.ID] {
			return fmt.Errorf("fixture task %d: duplicate id", t.ID)
		}
		seen[t.ID] = true

		if t.Completed != (t.CompletedAt != nil) {
			return fmt.Errorf("fixture task %d: completedAt must be set exactly when completed", t.ID)
		}
		if !t.Priority.Valid() {
			return fmt.Errorf("fixture task %d: invalid priority %q", t.ID, t.Priority)
		}
	}

	return nil
}
