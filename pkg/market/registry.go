package market

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// Meta holds the static configuration of one tradeable market as
// reported by the exchange meta endpoint.
type Meta struct {
	Symbol          string   // e.g. "ETH-PERP"
	OnChainID       *big.Int // identifier the contract and engine agree on
	TickSize        string   // minimum price increment (base units, decimal string)
	StepSize        string   // minimum quantity increment
	MinOrderSize    string
	MaxOrderSize    string
	DefaultLeverage int
	MaxLeverage     int
	Status          string // "ACTIVE", "PAUSED", "DELISTED"
}

// Registry maps market symbols to their on-chain identifiers in a
// thread-safe manner. It is populated from the exchange meta query and
// consulted by the order builder for every build.
type Registry struct {
	mu      sync.RWMutex
	markets map[string]*Meta // symbol -> meta
}

// NewRegistry creates an empty market registry
func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[string]*Meta),
	}
}

// Register adds or replaces a market in the registry
func (r *Registry) Register(m *Meta) error {
	if m == nil {
		return fmt.Errorf("cannot register nil market")
	}
	if m.Symbol == "" || m.OnChainID == nil {
		return fmt.Errorf("market requires symbol and on-chain id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[strings.ToUpper(m.Symbol)] = m
	return nil
}

// Get retrieves a market's metadata by symbol
func (r *Registry) Get(symbol string) (*Meta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.markets[strings.ToUpper(symbol)]
	if !exists {
		return nil, fmt.Errorf("Provided Market Symbol(%s) does not exist", symbol)
	}
	return m, nil
}

// Resolve returns the on-chain identifier for a symbol.
// The error message is part of the public contract; callers match on it.
func (r *Registry) Resolve(symbol string) (*big.Int, error) {
	m, err := r.Get(symbol)
	if err != nil {
		return nil, err
	}
	return m.OnChainID, nil
}

// List returns all registered markets
// Returns a copy of the slice to avoid concurrent modification
func (r *Registry) List() []*Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	markets := make([]*Meta, 0, len(r.markets))
	for _, m := range r.markets {
		markets = append(markets, m)
	}
	return markets
}

// Exists checks if a market is registered
func (r *Registry) Exists(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.markets[strings.ToUpper(symbol)]
	return exists
}

// Count returns the total number of registered markets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}
