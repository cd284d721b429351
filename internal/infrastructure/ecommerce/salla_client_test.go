package ecommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

func TestSallaClient_ListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": [
				{
					"id": 1234,
					"name": "مج قهوة",
					"url_slug": "coffee-mug",
					"status": "sale",
					"price": {"amount": 45.5, "currency": "SAR"},
					"quantity": 12,
					"main_image": "https://cdn.salla.sa/img/1.jpg",
					"urls": {"customer": "https://store.salla.sa/p/1234"},
					"categories": [{"name": "Kitchen"}]
				},
				{
					"id": 5678,
					"name": "Hidden Lamp",
					"status": "hidden",
					"price": {"amount": 99, "currency": "SAR"}
				}
			],
			"pagination": {"count": 2, "total": 40, "perPage": 2, "currentPage": 2, "totalPages": 20}
		}`))
	}))
	defer server.Close()

	client := NewSallaClient(config.PlatformConfig{APIBaseURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

	products, page, err := client.ListProducts(context.Background(),
		platform.Credentials{AccessToken: "tok"}, 2, platform.CallOptions{})
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "1234", products[0].ExternalID)
	assert.Equal(t, "مج قهوة", products[0].Name)
	assert.Equal(t, "coffee-mug", products[0].Slug)
	assert.Equal(t, "Kitchen", products[0].CategoryName)
	assert.True(t, products[0].Price.Equal(decimal.NewFromFloat(45.5)))
	assert.True(t, products[0].Active)
	assert.False(t, products[1].Active)

	require.NotNil(t, page)
	assert.True(t, page.HasMore())
}

func TestSallaClient_ListOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "2026-08-01", r.URL.Query().Get("from_date"))

		w.Write([]byte(`{
			"success": true,
			"data": [
				{
					"id": 90001,
					"status": {"slug": "completed"},
					"amounts": {"total": {"amount": 150, "currency": "SAR"}},
					"date": {"date": "2026-08-15 10:30:00"},
					"items": [
						{
							"product_id": 1234,
							"name": "مج قهوة",
							"quantity": 2,
							"amounts": {
								"price_per_unit": {"amount": 75, "currency": "SAR"},
								"total": {"amount": 150, "currency": "SAR"}
							}
						}
					]
				}
			],
			"pagination": {"count": 1, "total": 1, "perPage": 20, "currentPage": 1, "totalPages": 1}
		}`))
	}))
	defer server.Close()

	client := NewSallaClient(config.PlatformConfig{APIBaseURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	orders, page, err := client.ListOrders(context.Background(),
		platform.Credentials{AccessToken: "tok"}, since, 1, platform.CallOptions{})
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, "90001", o.ExternalID)
	assert.Equal(t, platform.OrderStatusPaid, o.Status)
	assert.True(t, o.Status.IsConfirmed())
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(150)))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "1234", o.Items[0].ExternalProductID)
	assert.NotEmpty(t, o.RawData)

	require.NotNil(t, page)
	assert.False(t, page.HasMore())
}

func TestSallaClient_GetOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/90001", r.URL.Path)
		w.Write([]byte(`{
			"success": true,
			"data": {
				"id": 90001,
				"status": {"slug": "delivered"},
				"amounts": {"total": {"amount": 80, "currency": "SAR"}}
			}
		}`))
	}))
	defer server.Close()

	client := NewSallaClient(config.PlatformConfig{APIBaseURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

	o, err := client.GetOrder(context.Background(),
		platform.Credentials{AccessToken: "tok"}, "90001", platform.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, platform.OrderStatusDelivered, o.Status)
}

func TestMapSallaStatus_UnknownDefaultsToPending(t *testing.T) {
	assert.Equal(t, platform.OrderStatusPending, mapSallaStatus("something-new"))
}
