package models

import "strings"

// Category groups tasks. Icon and Color are presentation hints.
// TaskCount is denormalized and only changes through an explicit refresh.
type Category struct {
	ID        int64  `json:"Id" yaml:"Id"`
	Name      string `json:"name" yaml:"name"`
	Icon      string `json:"icon" yaml:"icon"`
	Color     string `json:"color" yaml:"color"`
	TaskCount int    `json:"taskCount" yaml:"taskCount"`
}

// Validate checks that the category has valid field values.
func (c *Category) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(c.Name) == "" {
		verr.add("name", "Category name is required")
	}
	return verr.orNil()
}

// CategoryPatch is a partial update of a category's display fields.
type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Icon  *string `json:"icon,omitempty"`
	Color *string `json:"color,omitempty"`
}

// Apply merges the patch into c.
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}
