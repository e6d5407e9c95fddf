// Package cache stores on-chain token metadata so the node is not asked
// twice for values that never change.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned when a key is not present in the cache.
var ErrCacheMiss = errors.New("cache miss")

// TokenCache caches pool token pairs and ERC-20 metadata. Implementations
// must be safe for concurrent use.
type TokenCache interface {
	PoolPair(ctx context.Context, poolAddress string) (token0, token1 string, err error)
	SetPoolPair(ctx context.Context, poolAddress, token0, token1 string) error

	Decimals(ctx context.Context, tokenAddress string) (int, error)
	SetDecimals(ctx context.Context, tokenAddress string, decimals int) error

	Symbol(ctx context.Context, tokenAddress string) (string, error)
	SetSymbol(ctx context.Context, tokenAddress, symbol string) error
}
