package catalog

import (
	"strings"

	"github.com/souqlink/backend/internal/domain/shared"
)

// Category is a normalized catalog category
type Category struct {
	shared.BaseEntity
	Name string `gorm:"type:varchar(255);not null"`
	Slug string `gorm:"type:varchar(255);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a category with a derived slug
func NewCategory(name string) *Category {
	return &Category{
		BaseEntity: shared.NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		Slug:       Slugify(name),
	}
}

// Matches reports whether the category is a plausible home for the given
// platform category label or product slug fragment. Best-effort only; the
// repair pass may re-run it after category re-parenting.
func (c *Category) Matches(label string) bool {
	if label == "" {
		return false
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if strings.EqualFold(c.Name, label) {
		return true
	}
	slug := Slugify(label)
	return slug != "" && (strings.Contains(c.Slug, slug) || strings.Contains(slug, c.Slug))
}
