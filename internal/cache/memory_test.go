package cache

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if _, _, err := c.PoolPair(ctx, "0xpool"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := c.SetPoolPair(ctx, "0xpool", "0xa", "0xb"); err != nil {
		t.Fatalf("set pool pair: %v", err)
	}
	token0, token1, err := c.PoolPair(ctx, "0xpool")
	if err != nil {
		t.Fatalf("get pool pair: %v", err)
	}
	if token0 != "0xa" || token1 != "0xb" {
		t.Fatalf("unexpected pair: %s, %s", token0, token1)
	}

	if _, err := c.Decimals(ctx, "0xtoken"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
	if err := c.SetDecimals(ctx, "0xtoken", 18); err != nil {
		t.Fatalf("set decimals: %v", err)
	}
	decimals, err := c.Decimals(ctx, "0xtoken")
	if err != nil || decimals != 18 {
		t.Fatalf("expected 18, got %d (%v)", decimals, err)
	}

	if _, err := c.Symbol(ctx, "0xtoken"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
	if err := c.SetSymbol(ctx, "0xtoken", "WETH"); err != nil {
		t.Fatalf("set symbol: %v", err)
	}
	symbol, err := c.Symbol(ctx, "0xtoken")
	if err != nil || symbol != "WETH" {
		t.Fatalf("expected WETH, got %q (%v)", symbol, err)
	}
}
