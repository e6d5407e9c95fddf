package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Function selectors for the contract calls the service needs.
const (
	selectorToken0   = "0x0dfe1681" // token0()
	selectorToken1   = "0xd21220a7" // token1()
	selectorDecimals = "0x313ce567" // decimals()
	selectorSymbol   = "0x95d89b41" // symbol()
)

// ErrContractNotFound indicates the target address is not a contract that
// answers the expected call.
var ErrContractNotFound = errors.New("contract not found")

// PoolToken returns the address of the pool's token at the given index
// (0 or 1).
func (c *Client) PoolToken(ctx context.Context, poolAddress string, index int) (string, error) {
	var selector string
	switch index {
	case 0:
		selector = selectorToken0
	case 1:
		selector = selectorToken1
	default:
		return "", fmt.Errorf("invalid token index %d: must be 0 or 1", index)
	}

	result, err := c.CallContract(ctx, poolAddress, selector)
	if err != nil {
		return "", fmt.Errorf("%w: pool %s: %v", ErrContractNotFound, poolAddress, err)
	}

	// The return word is 32 bytes; the address occupies the last 20.
	word := strings.TrimPrefix(result, "0x")
	if len(word) < 64 {
		return "", fmt.Errorf("%w: pool %s returned short word %q", ErrContractNotFound, poolAddress, result)
	}
	return "0x" + strings.ToLower(word[24:64]), nil
}

// PoolTokens returns both token addresses of a pool.
func (c *Client) PoolTokens(ctx context.Context, poolAddress string) (string, string, error) {
	token0, err := c.PoolToken(ctx, poolAddress, 0)
	if err != nil {
		return "", "", err
	}
	token1, err := c.PoolToken(ctx, poolAddress, 1)
	if err != nil {
		return "", "", err
	}
	return token0, token1, nil
}

// TokenDecimals returns the decimals() value of an ERC-20 token.
func (c *Client) TokenDecimals(ctx context.Context, tokenAddress string) (int, error) {
	result, err := c.CallContract(ctx, tokenAddress, selectorDecimals)
	if err != nil {
		return 0, fmt.Errorf("%w: token %s: %v", ErrContractNotFound, tokenAddress, err)
	}

	decimals, err := parseHexUint(result)
	if err != nil {
		return 0, fmt.Errorf("%w: token %s returned %q", ErrContractNotFound, tokenAddress, result)
	}
	return int(decimals), nil
}

// TokenSymbol returns the symbol() value of an ERC-20 token, stripped of
// ABI padding and control characters.
func (c *Client) TokenSymbol(ctx context.Context, tokenAddress string) (string, error) {
	result, err := c.CallContract(ctx, tokenAddress, selectorSymbol)
	if err != nil {
		return "", fmt.Errorf("%w: token %s: %v", ErrContractNotFound, tokenAddress, err)
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(result, "0x"))
	if err != nil {
		return "", fmt.Errorf("%w: token %s returned %q", ErrContractNotFound, tokenAddress, result)
	}
	return sanitizeSymbol(string(raw)), nil
}

// sanitizeSymbol strips NUL padding, control characters and spaces that
// some token contracts leave in their ABI-encoded symbol.
func sanitizeSymbol(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
