package uniswap

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ward-analytics/galactus/internal/chain"
)

func word(v *big.Int) string {
	// Two's-complement encode into one 32-byte word.
	mod := new(big.Int).Lsh(big.NewInt(1), 256)
	enc := new(big.Int).Mod(v, mod)
	s := enc.Text(16)
	return strings.Repeat("0", 64-len(s)) + s
}

func swapLog(amount0, amount1 *big.Int) chain.Log {
	// Real swap logs carry more words (sqrtPriceX96, liquidity, tick);
	// only the first two matter here.
	extra := strings.Repeat("0", 64*3)
	return chain.Log{
		Address:     "0xPOOL",
		Data:        "0x" + word(amount0) + word(amount1) + extra,
		BlockNumber: 14000000,
		TxHash:      "0xabc",
		LogIndex:    7,
	}
}

func TestParseSwapPositiveAmounts(t *testing.T) {
	log := swapLog(big.NewInt(1000), big.NewInt(2500))

	swap, err := ParseSwap(log, "0xTOKEN0", "0xTOKEN1")
	if err != nil {
		t.Fatalf("parse swap: %v", err)
	}

	if swap.Amount0.Cmp(big.NewInt(1000)) != 0 || swap.Amount1.Cmp(big.NewInt(2500)) != 0 {
		t.Fatalf("unexpected amounts: %s / %s", swap.Amount0, swap.Amount1)
	}
	if swap.Pool != "0xpool" || swap.Token0 != "0xtoken0" || swap.Token1 != "0xtoken1" {
		t.Fatalf("addresses not lowercased: %+v", swap)
	}
	if got := swap.Ratio(); got != 2.5 {
		t.Fatalf("expected ratio 2.5, got %v", got)
	}
}

func TestParseSwapNegativeAmounts(t *testing.T) {
	// In a V3 swap one amount is negative (the pool pays it out). The
	// service only cares about magnitudes.
	log := swapLog(big.NewInt(-4000), big.NewInt(1000))

	swap, err := ParseSwap(log, "0xa", "0xb")
	if err != nil {
		t.Fatalf("parse swap: %v", err)
	}
	if swap.Amount0.Cmp(big.NewInt(4000)) != 0 {
		t.Fatalf("expected |amount0| = 4000, got %s", swap.Amount0)
	}
	if got := swap.Ratio(); got != 0.25 {
		t.Fatalf("expected ratio 0.25, got %v", got)
	}
}

func TestParseSwapLargeAmounts(t *testing.T) {
	amount0, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	log := swapLog(amount0, big.NewInt(1))

	swap, err := ParseSwap(log, "0xa", "0xb")
	if err != nil {
		t.Fatalf("parse swap: %v", err)
	}
	if swap.Amount0.Cmp(amount0) != 0 {
		t.Fatalf("expected %s, got %s", amount0, swap.Amount0)
	}
}

func TestParseSwapShortData(t *testing.T) {
	log := chain.Log{Data: "0x1234"}
	if _, err := ParseSwap(log, "0xa", "0xb"); err == nil {
		t.Fatal("expected error for short data")
	}
}

func TestParseSwapBadHex(t *testing.T) {
	log := chain.Log{Data: "0x" + strings.Repeat("zz", 64)}
	if _, err := ParseSwap(log, "0xa", "0xb"); err == nil {
		t.Fatal("expected error for invalid hex")
	}
}

func TestHasZeroAmount(t *testing.T) {
	log := swapLog(big.NewInt(0), big.NewInt(5))
	swap, err := ParseSwap(log, "0xa", "0xb")
	if err != nil {
		t.Fatalf("parse swap: %v", err)
	}
	if !swap.HasZeroAmount() {
		t.Fatal("expected zero amount swap to be flagged")
	}
}
