package ecommerce

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/souqlink/backend/internal/domain/platform"
)

// ---------------------------------------------------------------------------
// Zid wire types
// ---------------------------------------------------------------------------

type zidProduct struct {
	ID   string `json:"id"`
	Name struct {
		Ar string `json:"ar"`
		En string `json:"en"`
	} `json:"name"`
	Description struct {
		Ar string `json:"ar"`
		En string `json:"en"`
	} `json:"description"`
	Price       decimal.Decimal `json:"price"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	Currency    string          `json:"currency"`
	Quantity    int             `json:"quantity"`
	IsPublished bool            `json:"is_published"`
	MainImage   struct {
		URL string `json:"url"`
	} `json:"main_image"`
	HTMLURL    string `json:"html_url"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
}

// displayName prefers the Arabic label, matching the storefront default
func (p *zidProduct) displayName() string {
	if p.Name.Ar != "" {
		return p.Name.Ar
	}
	return p.Name.En
}

func (p *zidProduct) toNormalized(storeID string) platform.Product {
	categoryName := ""
	if len(p.Categories) > 0 {
		categoryName = p.Categories[0].Name
	}
	description := p.Description.Ar
	if description == "" {
		description = p.Description.En
	}
	return platform.Product{
		ExternalID:   p.ID,
		PlatformCode: platform.CodeZid,
		StoreID:      storeID,
		Name:         p.displayName(),
		Description:  description,
		CategoryName: categoryName,
		Price:        p.Price,
		SalePrice:    p.SalePrice,
		Currency:     p.Currency,
		Quantity:     p.Quantity,
		ImageURL:     p.MainImage.URL,
		ProductURL:   p.HTMLURL,
		Active:       p.IsPublished,
	}
}

type zidOrder struct {
	ID          json.Number `json:"id"`
	Code        string      `json:"code"`
	OrderStatus struct {
		Code string `json:"code"`
	} `json:"order_status"`
	OrderTotal decimal.Decimal `json:"order_total"`
	Currency   string          `json:"currency_code"`
	CreatedAt  string          `json:"created_at"`
	StoreID    json.Number     `json:"store_id"`
	Products   []zidOrderItem  `json:"products"`
}

type zidOrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// zidStatusMap translates Zid order status codes to the normalized set
var zidStatusMap = map[string]platform.OrderStatus{
	"new":                 platform.OrderStatusPending,
	"preparing":           platform.OrderStatusPaid,
	"ready":               platform.OrderStatusPaid,
	"indelivery":          platform.OrderStatusShipped,
	"delivered":           platform.OrderStatusDelivered,
	"cancelled":           platform.OrderStatusCancelled,
	"reverse_in_progress": platform.OrderStatusRefunded,
	"reversed":            platform.OrderStatusRefunded,
}

func mapZidStatus(code string) platform.OrderStatus {
	if s, ok := zidStatusMap[code]; ok {
		return s
	}
	return platform.OrderStatusPending
}

func (o *zidOrder) toNormalized(raw []byte) platform.Order {
	items := make([]platform.OrderItem, 0, len(o.Products))
	for _, it := range o.Products {
		items = append(items, platform.OrderItem{
			ExternalProductID: it.ID,
			Name:              it.Name,
			Quantity:          it.Quantity,
			UnitPrice:         it.Price,
			TotalPrice:        it.Total,
		})
	}

	createdAt := time.Now()
	if o.CreatedAt != "" {
		if at, err := time.Parse(time.RFC3339, o.CreatedAt); err == nil {
			createdAt = at
		}
	}

	return platform.Order{
		ExternalID:   o.ID.String(),
		PlatformCode: platform.CodeZid,
		StoreID:      o.StoreID.String(),
		Status:       mapZidStatus(o.OrderStatus.Code),
		TotalAmount:  o.OrderTotal,
		Currency:     o.Currency,
		Items:        items,
		CreatedAt:    createdAt,
		RawData:      string(raw),
	}
}

func zidPageQuery(page int) map[string]string {
	if page <= 0 {
		page = 1
	}
	return map[string]string{"page": strconv.Itoa(page)}
}
