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

// ZidClient implements platform.Client against the Zid Merchant API.
// Zid calls require both the OAuth access token and the store manager
// token; a connection missing either is not usable.
type ZidClient struct {
	core *httpCore
}

var _ platform.Client = (*ZidClient)(nil)

// NewZidClient creates a Zid API client
func NewZidClient(cfg config.PlatformConfig, logger *zap.Logger) *ZidClient {
	return &ZidClient{
		core: newHTTPCore("zid", cfg.APIBaseURL, cfg.Timeout, logger, zidAuth),
	}
}

func zidAuth(req *http.Request, creds platform.Credentials) {
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("X-Manager-Token", creds.ManagerToken)
}

// PlatformCode returns the platform this client talks to
func (c *ZidClient) PlatformCode() platform.Code {
	return platform.CodeZid
}

// Call performs one API call with envelope validation and retry handling
func (c *ZidClient) Call(ctx context.Context, creds platform.Credentials, req platform.Request, opts platform.CallOptions) (*platform.Envelope, error) {
	if creds.ManagerToken == "" {
		return nil, fmt.Errorf("%w: zid manager token missing", platform.ErrNotConnected)
	}
	return c.core.call(ctx, creds, req, opts)
}

// ListProducts pulls one page of the merchant catalog
func (c *ZidClient) ListProducts(ctx context.Context, creds platform.Credentials, page int, opts platform.CallOptions) ([]platform.Product, *platform.Pagination, error) {
	env, err := c.Call(ctx, creds, platform.Request{
		Method: http.MethodGet,
		Path:   "/products",
		Query:  zidPageQuery(page),
	}, opts)
	if err != nil {
		return nil, nil, err
	}

	var wire []zidProduct
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
func (c *ZidClient) ListOrders(ctx context.Context, creds platform.Credentials, since time.Time, page int, opts platform.CallOptions) ([]platform.Order, *platform.Pagination, error) {
	query := zidPageQuery(page)
	if !since.IsZero() {
		query["since"] = since.Format(time.RFC3339)
	}

	env, err := c.Call(ctx, creds, platform.Request{
		Method: http.MethodGet,
		Path:   "/managers/store/orders",
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
		var o zidOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, nil, fmt.Errorf("%w: unexpected order payload: %v", platform.ErrUpstream, err)
		}
		orders = append(orders, o.toNormalized(raw))
	}
	return orders, env.Pagination, nil
}

// GetOrder retrieves a single order by its platform id
func (c *ZidClient) GetOrder(ctx context.Context, creds platform.Credentials, platformOrderID string, opts platform.CallOptions) (*platform.Order, error) {
	env, err := c.Call(ctx, creds, platform.Request{
		Method: http.MethodGet,
		Path:   "/managers/store/orders/" + platformOrderID + "/view",
	}, opts)
	if err != nil {
		return nil, err
	}

	var o zidOrder
	if err := json.Unmarshal(env.Data, &o); err != nil {
		return nil, fmt.Errorf("%w: unexpected order payload: %v", platform.ErrUpstream, err)
	}
	normalized := o.toNormalized(env.Data)
	return &normalized, nil
}
