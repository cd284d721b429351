package ecommerce

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/souqlink/backend/internal/domain/platform"
)

// ---------------------------------------------------------------------------
// Salla wire types
// ---------------------------------------------------------------------------

type sallaMoney struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type sallaProduct struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	URLSlug     string      `json:"url_slug"`
	Status      string      `json:"status"`
	Price       sallaMoney  `json:"price"`
	SalePrice   sallaMoney  `json:"sale_price"`
	Quantity    int         `json:"quantity"`
	MainImage   string      `json:"main_image"`
	URLs        struct {
		Customer string `json:"customer"`
	} `json:"urls"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
}

func (p *sallaProduct) toNormalized(storeID string) platform.Product {
	categoryName := ""
	if len(p.Categories) > 0 {
		categoryName = p.Categories[0].Name
	}
	return platform.Product{
		ExternalID:   p.ID.String(),
		PlatformCode: platform.CodeSalla,
		StoreID:      storeID,
		Name:         p.Name,
		Slug:         p.URLSlug,
		Description:  p.Description,
		CategoryName: categoryName,
		Price:        p.Price.Amount,
		SalePrice:    p.SalePrice.Amount,
		Currency:     p.Price.Currency,
		Quantity:     p.Quantity,
		ImageURL:     p.MainImage,
		ProductURL:   p.URLs.Customer,
		Active:       p.Status == "sale",
	}
}

type sallaOrder struct {
	ID          json.Number `json:"id"`
	ReferenceID json.Number `json:"reference_id"`
	Status      struct {
		Slug string `json:"slug"`
	} `json:"status"`
	Amounts struct {
		Total sallaMoney `json:"total"`
	} `json:"amounts"`
	Date struct {
		Date string `json:"date"`
	} `json:"date"`
	Items []sallaOrderItem `json:"items"`
}

type sallaOrderItem struct {
	ProductID json.Number `json:"product_id"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	Amounts   struct {
		PricePerUnit sallaMoney `json:"price_per_unit"`
		Total        sallaMoney `json:"total"`
	} `json:"amounts"`
}

// sallaStatusMap translates Salla order status slugs to the normalized set
var sallaStatusMap = map[string]platform.OrderStatus{
	"under_review":    platform.OrderStatusPending,
	"payment_pending": platform.OrderStatusPending,
	"in_progress":     platform.OrderStatusPaid,
	"completed":       platform.OrderStatusPaid,
	"delivering":      platform.OrderStatusShipped,
	"shipped":         platform.OrderStatusShipped,
	"delivered":       platform.OrderStatusDelivered,
	"canceled":        platform.OrderStatusCancelled,
	"restored":        platform.OrderStatusRefunded,
	"restoring":       platform.OrderStatusRefunded,
}

func mapSallaStatus(slug string) platform.OrderStatus {
	if s, ok := sallaStatusMap[slug]; ok {
		return s
	}
	return platform.OrderStatusPending
}

func (o *sallaOrder) toNormalized(storeID string, raw []byte) platform.Order {
	items := make([]platform.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, platform.OrderItem{
			ExternalProductID: it.ProductID.String(),
			Name:              it.Name,
			Quantity:          it.Quantity,
			UnitPrice:         it.Amounts.PricePerUnit.Amount,
			TotalPrice:        it.Amounts.Total.Amount,
		})
	}

	createdAt := time.Now()
	if o.Date.Date != "" {
		if at, err := time.Parse("2006-01-02 15:04:05", o.Date.Date); err == nil {
			createdAt = at
		}
	}

	return platform.Order{
		ExternalID:   o.ID.String(),
		PlatformCode: platform.CodeSalla,
		StoreID:      storeID,
		Status:       mapSallaStatus(o.Status.Slug),
		TotalAmount:  o.Amounts.Total.Amount,
		Currency:     o.Amounts.Total.Currency,
		Items:        items,
		CreatedAt:    createdAt,
		RawData:      string(raw),
	}
}

// sallaPage converts the wire pagination block, which Salla keys as
// "pagination" with count/total/perPage fields.
func sallaPageQuery(page int) map[string]string {
	if page <= 0 {
		page = 1
	}
	return map[string]string{"page": strconv.Itoa(page)}
}
