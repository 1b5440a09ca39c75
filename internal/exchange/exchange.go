// Package exchange defines the venue capability consumed by the execution core.
package exchange

import (
	"context"
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

// Exchange is the capability the engine needs from a trading venue.
// Implementations must be safe for concurrent use.
type Exchange interface {
	// Name returns the name signals use to address this exchange.
	Name() string
	// CreateOrder places an order. A venue rejection is returned as an error and no order exists.
	CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
	// CancelOrder cancels an open order.
	CancelOrder(ctx context.Context, orderID string, pair string) (bool, error)
	// FetchOrder returns the venue side status and fill state of an order.
	FetchOrder(ctx context.Context, orderID string, pair string) (types.Order, error)
	// FetchTicker returns the latest top of book.
	FetchTicker(ctx context.Context, pair string) (types.Ticker, error)
}

// Registry maps exchange names to implementations.
type Registry struct {
	mu        sync.RWMutex
	exchanges map[string]Exchange
}

// NewRegistry creates a registry holding the given exchanges.
func NewRegistry(exchanges ...Exchange) (*Registry, error) {
	registry := &Registry{
		exchanges: make(map[string]Exchange, len(exchanges)),
	}

	for _, ex := range exchanges {
		if err := registry.Register(ex); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// Register adds an exchange. Names must be unique.
func (r *Registry) Register(ex Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.exchanges[ex.Name()]; exists {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "exchange %s is already registered", ex.Name())
	}

	r.exchanges[ex.Name()] = ex

	return nil
}

// Get returns the exchange registered under name.
func (r *Registry) Get(name string) (Exchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ex, ok := r.exchanges[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownExchange, "exchange %s is not registered", name)
	}

	return ex, nil
}

// Names returns the registered exchange names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.exchanges))
	for name := range r.exchanges {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
