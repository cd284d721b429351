package ecommerce

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

// ClientRegistry resolves the API client for a platform code
type ClientRegistry struct {
	clients map[platform.Code]platform.Client
}

var _ platform.Registry = (*ClientRegistry)(nil)

// NewClientRegistry builds the registry with one client per supported platform
func NewClientRegistry(cfg *config.Config, logger *zap.Logger) *ClientRegistry {
	return &ClientRegistry{
		clients: map[platform.Code]platform.Client{
			platform.CodeSalla: NewSallaClient(cfg.Salla, logger),
			platform.CodeZid:   NewZidClient(cfg.Zid, logger),
		},
	}
}

// NewClientRegistryWith wires explicit clients, useful in tests
func NewClientRegistryWith(clients ...platform.Client) *ClientRegistry {
	m := make(map[platform.Code]platform.Client, len(clients))
	for _, c := range clients {
		m[c.PlatformCode()] = c
	}
	return &ClientRegistry{clients: m}
}

// Client returns the client for the given platform code
func (r *ClientRegistry) Client(code platform.Code) (platform.Client, error) {
	c, ok := r.clients[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", platform.ErrUnknownPlatform, code)
	}
	return c, nil
}
