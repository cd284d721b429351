package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and hyphenates", "Sidr Honey 500g", "sidr-honey-500g"},
		{"collapses runs of separators", "Sidr  --  Honey", "sidr-honey"},
		{"trims edge hyphens", "  (Sidr Honey)  ", "sidr-honey"},
		{"preserves arabic letters", "عسل السدر الفاخر", "عسل-السدر-الفاخر"},
		{"mixed arabic and latin", "عسل Sidr", "عسل-sidr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}

	t.Run("empty input falls back to a random slug", func(t *testing.T) {
		got := Slugify("!!!")
		assert.Len(t, got, 8)
		assert.NotEqual(t, got, Slugify("!!!"))
	})
}

func TestProductExternalID(t *testing.T) {
	p := Product{BaseEntity: shared.NewBaseEntity()}

	p.SetExternalID(platform.CodeSalla, "s-100")
	p.SetExternalID(platform.CodeZid, "z-200")

	assert.Equal(t, "s-100", p.ExternalID(platform.CodeSalla))
	assert.Equal(t, "z-200", p.ExternalID(platform.CodeZid))
	assert.Empty(t, p.ExternalID(platform.Code("OTHER")))
}

func TestProductDeactivate(t *testing.T) {
	p := Product{BaseEntity: shared.NewBaseEntity(), Active: true}
	p.Deactivate()
	assert.False(t, p.Active)
}

func TestCategoryMatches(t *testing.T) {
	c := NewCategory("Honey & Bee Products")

	assert.Equal(t, "honey-bee-products", c.Slug)
	assert.True(t, c.Matches("Honey & Bee Products"))
	assert.True(t, c.Matches("  honey & bee products "))
	assert.False(t, c.Matches("Dates"))
}
