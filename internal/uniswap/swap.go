// Package uniswap parses Uniswap V3 swap events from raw Ethereum logs.
package uniswap

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ward-analytics/galactus/internal/chain"
)

// SwapTopic is the event signature of the Uniswap V3 Swap event.
const SwapTopic = "0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67"

// SwapEvent is one swap between the two tokens of a pool.
type SwapEvent struct {
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
	Pool        string

	Token0 string
	Token1 string

	// Absolute values of the two int256 amount words of the event data.
	Amount0 *big.Int
	Amount1 *big.Int
}

// Ratio returns Amount1/Amount0, the pool's token1-per-token0 exchange
// ratio observed in this swap.
func (e SwapEvent) Ratio() float64 {
	amount0, _ := new(big.Float).SetInt(e.Amount0).Float64()
	amount1, _ := new(big.Float).SetInt(e.Amount1).Float64()
	return amount1 / amount0
}

// HasZeroAmount reports whether either leg of the swap is zero. Such
// events carry no price information and are skipped.
func (e SwapEvent) HasZeroAmount() bool {
	return e.Amount0.Sign() == 0 || e.Amount1.Sign() == 0
}

// ParseSwap decodes a raw swap log into a SwapEvent. The pool's token
// addresses are supplied by the caller since they are not part of the log.
func ParseSwap(log chain.Log, token0, token1 string) (SwapEvent, error) {
	data := strings.TrimPrefix(log.Data, "0x")
	// amount0 and amount1 are the first two 32-byte words.
	if len(data) < 128 {
		return SwapEvent{}, fmt.Errorf("swap log %s/%d: data too short (%d chars)", log.TxHash, log.LogIndex, len(data))
	}

	amount0, err := parseInt256Abs(data[0:64])
	if err != nil {
		return SwapEvent{}, fmt.Errorf("swap log %s/%d: amount0: %w", log.TxHash, log.LogIndex, err)
	}
	amount1, err := parseInt256Abs(data[64:128])
	if err != nil {
		return SwapEvent{}, fmt.Errorf("swap log %s/%d: amount1: %w", log.TxHash, log.LogIndex, err)
	}

	return SwapEvent{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Pool:        strings.ToLower(log.Address),
		Token0:      strings.ToLower(token0),
		Token1:      strings.ToLower(token1),
		Amount0:     amount0,
		Amount1:     amount1,
	}, nil
}

// parseInt256Abs decodes a 32-byte hex word as a two's-complement int256
// and returns its absolute value.
func parseInt256Abs(word string) (*big.Int, error) {
	raw, err := hex.DecodeString(word)
	if err != nil {
		return nil, fmt.Errorf("invalid hex word: %w", err)
	}

	v := new(big.Int).SetBytes(raw)
	// Negative when the sign bit is set: subtract 2^256.
	if len(raw) == 32 && raw[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return v.Abs(v), nil
}
