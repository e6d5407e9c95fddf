package cache

import (
	"context"
	"sync"
)

// MemoryCache is an in-process TokenCache. It backs tests and deployments
// that run without Redis.
type MemoryCache struct {
	mu       sync.RWMutex
	pairs    map[string][2]string
	decimals map[string]int
	symbols  map[string]string
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		pairs:    make(map[string][2]string),
		decimals: make(map[string]int),
		symbols:  make(map[string]string),
	}
}

func (c *MemoryCache) PoolPair(_ context.Context, poolAddress string) (string, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pair, ok := c.pairs[poolAddress]
	if !ok {
		return "", "", ErrCacheMiss
	}
	return pair[0], pair[1], nil
}

func (c *MemoryCache) SetPoolPair(_ context.Context, poolAddress, token0, token1 string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs[poolAddress] = [2]string{token0, token1}
	return nil
}

func (c *MemoryCache) Decimals(_ context.Context, tokenAddress string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	decimals, ok := c.decimals[tokenAddress]
	if !ok {
		return 0, ErrCacheMiss
	}
	return decimals, nil
}

func (c *MemoryCache) SetDecimals(_ context.Context, tokenAddress string, decimals int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decimals[tokenAddress] = decimals
	return nil
}

func (c *MemoryCache) Symbol(_ context.Context, tokenAddress string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	symbol, ok := c.symbols[tokenAddress]
	if !ok {
		return "", ErrCacheMiss
	}
	return symbol, nil
}

func (c *MemoryCache) SetSymbol(_ context.Context, tokenAddress, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols[tokenAddress] = symbol
	return nil
}

var _ TokenCache = (*MemoryCache)(nil)
