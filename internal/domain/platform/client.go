package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials is the token set a client attaches to outbound calls.
// ManagerToken is only populated for platforms that issue one (Zid).
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ManagerToken string
	ExpiresAt    time.Time
}

// RefreshFunc exchanges the refresh token for a new credential set.
// The client invokes it at most once per call, on HTTP 401.
type RefreshFunc func(ctx context.Context) (Credentials, error)

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Envelope is the strict outer wrapper every platform API response must
// conform to. Any deviation is ErrUpstream, never empty data.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Pagination carries cursor state for paginated platform endpoints
type Pagination struct {
	Count       int `json:"count"`
	Total       int `json:"total"`
	PerPage     int `json:"perPage"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// HasMore returns true if further pages remain
func (p *Pagination) HasMore() bool {
	return p != nil && p.CurrentPage < p.TotalPages
}

// ParseEnvelope validates the response body against the strict
// {success:true, data:<non-null>} contract.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", ErrUpstream, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: success=false", ErrUpstream)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data field", ErrUpstream)
	}
	return &env, nil
}

// ---------------------------------------------------------------------------
// Client port
// ---------------------------------------------------------------------------

// Request describes one outbound platform API call
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   any
}

// CallOptions carries the per-call retry budget. Backoff state is per-call,
// never shared, so the client stays side-effect-free.
type CallOptions struct {
	// MaxAttempts bounds 429 retries. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Refresh is invoked at most once on HTTP 401; nil disables refresh.
	Refresh RefreshFunc
}

// DefaultMaxAttempts is the default 429 retry bound
const DefaultMaxAttempts = 3

// Client is the port implemented by each platform HTTP adapter.
// Callers impose their own timeout via ctx; the client never spawns
// background retries.
type Client interface {
	// PlatformCode returns the platform this client talks to
	PlatformCode() Code

	// Call performs one API call with envelope validation, 401
	// refresh-and-retry, and bounded 429 backoff.
	Call(ctx context.Context, creds Credentials, req Request, opts CallOptions) (*Envelope, error)

	// ListProducts pulls one page of the merchant catalog
	ListProducts(ctx context.Context, creds Credentials, page int, opts CallOptions) ([]Product, *Pagination, error)

	// ListOrders pulls one page of orders created since the given time
	ListOrders(ctx context.Context, creds Credentials, since time.Time, page int, opts CallOptions) ([]Order, *Pagination, error)

	// GetOrder retrieves a single order by its platform id
	GetOrder(ctx context.Context, creds Credentials, platformOrderID string, opts CallOptions) (*Order, error)
}

// Registry resolves the client for a platform code
type Registry interface {
	Client(code Code) (Client, error)
}
