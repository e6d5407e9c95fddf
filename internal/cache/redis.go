package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
)

// Logical Redis databases. Pool pairs, decimals and symbols live in
// separate DBs so each can be flushed independently.
const (
	poolPairDB = 0
	decimalsDB = 1
	symbolsDB  = 2
)

// RedisCache implements TokenCache on Redis. Entries are written without
// TTL: pool pairs and token metadata are immutable on-chain.
type RedisCache struct {
	pairs    *redis.Client
	decimals *redis.Client
	symbols  *redis.Client
}

// NewRedisCache connects to the Redis host at addr (host:port; a bare host
// defaults to port 6379).
func NewRedisCache(addr string) *RedisCache {
	if !strings.Contains(addr, ":") {
		addr += ":6379"
	}
	return &RedisCache{
		pairs:    redis.NewClient(&redis.Options{Addr: addr, DB: poolPairDB}),
		decimals: redis.NewClient(&redis.Options{Addr: addr, DB: decimalsDB}),
		symbols:  redis.NewClient(&redis.Options{Addr: addr, DB: symbolsDB}),
	}
}

// Ping checks connectivity to Redis.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.pairs.Ping(ctx).Err()
}

// Close releases all connections.
func (c *RedisCache) Close() error {
	for _, client := range []*redis.Client{c.pairs, c.decimals, c.symbols} {
		if err := client.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (c *RedisCache) PoolPair(ctx context.Context, poolAddress string) (string, string, error) {
	value, err := c.pairs.Get(ctx, poolAddress).Result()
	if err == redis.Nil {
		return "", "", ErrCacheMiss
	}
	if err != nil {
		return "", "", fmt.Errorf("redis get pool pair: %w", err)
	}

	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed pool pair entry %q", value)
	}
	return parts[0], parts[1], nil
}

func (c *RedisCache) SetPoolPair(ctx context.Context, poolAddress, token0, token1 string) error {
	return c.pairs.Set(ctx, poolAddress, token0+","+token1, 0).Err()
}

func (c *RedisCache) Decimals(ctx context.Context, tokenAddress string) (int, error) {
	value, err := c.decimals.Get(ctx, tokenAddress).Result()
	if err == redis.Nil {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("redis get decimals: %w", err)
	}

	decimals, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("malformed decimals entry %q", value)
	}
	return decimals, nil
}

func (c *RedisCache) SetDecimals(ctx context.Context, tokenAddress string, decimals int) error {
	return c.decimals.Set(ctx, tokenAddress, strconv.Itoa(decimals), 0).Err()
}

func (c *RedisCache) Symbol(ctx context.Context, tokenAddress string) (string, error) {
	value, err := c.symbols.Get(ctx, tokenAddress).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get symbol: %w", err)
	}
	return value, nil
}

func (c *RedisCache) SetSymbol(ctx context.Context, tokenAddress, symbol string) error {
	return c.symbols.Set(ctx, tokenAddress, symbol, 0).Err()
}

var _ TokenCache = (*RedisCache)(nil)
