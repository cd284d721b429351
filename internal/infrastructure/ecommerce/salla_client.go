package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

// SallaClient implements platform.Client against the Salla Admin API
type SallaClient struct {
	core *httpCore
}

var _ platform.Client = (*SallaClient)(nil)

// NewSallaClient creates a Salla API client
func NewSallaClient(cfg config.PlatformConfig, logger *zap.Logger) *SallaClient {
	return &SallaClient{
		core: newHTTPCore("salla", cfg.APIBaseURL, cfg.Timeout, logger, sallaAuth),
	}
}

func sallaAuth(req *http.Request, creds platform.Credentials) {
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
}

// PlatformCode returns the platform this client talks to
func (c *SallaClient) PlatformCode() platform.Code {
	return platform.CodeSalla
}

// Call performs one API call with envelope validation and retry handling
func (c *SallaClient) Call(ctx context.Context, creds platform.Credentials, req platform.Request, opts platform.CallOptions) (*platform.Envelope, error) {
	return c.core.call(ctx, creds, req, opts)
}

// ListProducts pulls one page of the merchant catalog
func (c *SallaClient) ListProducts(ctx context.Context, creds platform.Credentials, page int, opts platform.CallOptions) ([]platform.Product, *platform.Pagination, error) {
	env, err := c.Call(ctx, creds, platform.Request{
		Method: http.MethodGet,
		Path:   "/products",
		Query:  sallaPageQuery(page),
	}, opts)
	if err != nil {
		return nil, nil, err
	}

	var wire []sallaProduct
	if err := json.Unmarshal(env.Data, &wire); err != nil {
		return nil, nil, fmt.Errorf("%w: unexpected products payload: %v", platform.ErrUpstream, err)
	}

	products := make([]platform.Product, 0, len(wire))
	for i := range wire {
		products = append(products, wire[i].toNormalized(""))
	}
	return products, env.Pagination, nil
}

// ListOrders pulls one page of orders created since the given time
func (c *SallaClient) ListOrders(ctx context.Context, creds platform.Credentials, since time.Time, page int, opts platform.CallOptions) ([]platform.Order, *platform.Pagination, error) {
	query := sallaPageQuery(page)
	if !since.IsZero() {
		query["from_date"] = since.Format("2006-01-02")
	}

	env, err := c.Call(ctx, creds, platform.Request{
		Method: http.MethodGet,
		Path:   "/orders",
		Query:  query,
	}, opts)
	if err != nil {
		return nil, nil, err
	}

	var wire []json.RawMessage
	if err := json.Unmarshal(env.Data, &wire); err != nil {
		return nil, nil, fmt.Errorf("%w: unexpected orders payload: %v", platform.ErrUpstream, err)
	}

	orders := make([]platform.Order, 0, len(wire))
	for _, raw := range wire {
		var o sallaOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, nil, fmt.Errorf("%w: unexpected order payload: %v", platform.ErrUpstream, err)
		}
		orders = append(orders, o.toNormalized("", raw))
	}
	return orders, env.Pagination, nil
}

// GetOrder retrieves a single order by its platform id
func (c *SallaClient) GetOrder(ctx context.Context, creds platform.Credentials, platformOrderID string, opts platform.CallOptions) (*platform.Order, error) {
	env, err := c.Call(ctx, creds, platform.Request{
		Method: http.MethodGet,
		Path:   "/orders/" + platformOrderID,
	}, opts)
	if err != nil {
		return nil, err
	}

	var o sallaOrder
	if err := json.Unmarshal(env.Data, &o); err != nil {
		return nil, fmt.Errorf("%w: unexpected order payload: %v", platform.ErrUpstream, err)
	}
	normalized := o.toNormalized("", env.Data)
	return &normalized, nil
}
