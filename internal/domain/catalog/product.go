package catalog

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

var (
	ErrProductNotFound    = errors.New("catalog: product not found")
	ErrCategoryNotFound   = errors.New("catalog: category not found")
	ErrInvalidProductName = errors.New("catalog: product name is required")
	ErrInvalidSlug        = errors.New("catalog: invalid slug")
	ErrDuplicateSlug      = errors.New("catalog: slug already exists")
)

// Product is a normalized catalog entry. At most one platform external id is
// populated in practice (a merchant runs one active platform), but the schema
// tolerates both.
type Product struct {
	shared.BaseEntity
	MerchantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:varchar(255);not null"`
	Slug        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string     `gorm:"type:text"`
	// SallaID / ZidID are the per-platform external product ids
	SallaID    string          `gorm:"type:varchar(100);index"`
	ZidID      string          `gorm:"type:varchar(100);index"`
	Price      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency   string          `gorm:"type:varchar(10);not null;default:'SAR'"`
	Quantity   int             `gorm:"not null;default:0"`
	ImageURL   string          `gorm:"type:varchar(1000)"`
	ProductURL string          `gorm:"type:varchar(1000)"`
	Active     bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// ExternalID returns the external id for the given platform
func (p *Product) ExternalID(code platform.Code) string {
	switch code {
	case platform.CodeSalla:
		return p.SallaID
	case platform.CodeZid:
		return p.ZidID
	default:
		return ""
	}
}

// SetExternalID sets the external id for the given platform
func (p *Product) SetExternalID(code platform.Code, id string) {
	switch code {
	case platform.CodeSalla:
		p.SallaID = id
	case platform.CodeZid:
		p.ZidID = id
	}
}

// Deactivate marks the product as no longer purchasable. Rows are kept so
// click attribution history stays resolvable.
func (p *Product) Deactivate() {
	p.Active = false
	p.Touch()
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9\p{Arabic}]+`)

// Slugify derives a URL slug from a product or category name.
// Arabic letters are preserved; everything else collapses to hyphens.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugInvalidChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = uuid.NewString()[:8]
	}
	return s
}
