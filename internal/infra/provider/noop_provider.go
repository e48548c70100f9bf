package provider

import (
	"context"
	"fmt"
	"sync"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*NoopProvider)(nil)

// NoopProvider is a simple in-memory provider to use in tests and demos.
type NoopProvider struct {
	mu     sync.Mutex
	orders map[string]*adapter.Order
	down   bool
}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{orders: make(map[string]*adapter.Order)}
}

func (p *NoopProvider) Name() string { return "noop" }

// AddOrder seeds an order the provider will report.
func (p *NoopProvider) AddOrder(o *adapter.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders[o.ID] = o
}

// SetDown makes all calls fail as if the provider were unreachable.
func (p *NoopProvider) SetDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

func (p *NoopProvider) GetAccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return "", fmt.Errorf("%w: noop provider down", domain.ErrProviderUnavailable)
	}
	return "noop-token", nil
}

func (p *NoopProvider) GetOrder(ctx context.Context, transactionID, token string) (*adapter.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return nil, fmt.Errorf("%w: noop provider down", domain.ErrProviderUnavailable)
	}
	o, ok := p.orders[transactionID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, transactionID)
	}
	cp := *o
	return &cp, nil
}
