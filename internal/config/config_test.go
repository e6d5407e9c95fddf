package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NODE_URL", "https://node.example.com")
	for _, key := range []string{
		"LISTEN_ADDR", "RPC_TIMEOUT", "RPC_RATE_LIMIT", "RPC_BURST",
		"REDIS_URL", "DATABASE_URL", "BLOCK_RANGE", "USD_REFERENCE_TOKEN",
		"HEAD_REFRESH_CRON", "HTTP_RATE_LIMIT", "HTTP_BURST",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.NodeURL != "https://node.example.com" {
		t.Errorf("NodeURL = %q", cfg.NodeURL)
	}
	if cfg.BlockRange != DefaultBlockRange {
		t.Errorf("BlockRange = %d, want %d", cfg.BlockRange, DefaultBlockRange)
	}
	if cfg.RPCTimeout != DefaultRPCTimeout {
		t.Errorf("RPCTimeout = %v, want %v", cfg.RPCTimeout, DefaultRPCTimeout)
	}
	if cfg.USDReferenceToken != DefaultUSDReferenceToken {
		t.Errorf("USDReferenceToken = %q, want %q", cfg.USDReferenceToken, DefaultUSDReferenceToken)
	}
	if cfg.HeadRefreshSpec != DefaultHeadRefreshSpec {
		t.Errorf("HeadRefreshSpec = %q, want %q", cfg.HeadRefreshSpec, DefaultHeadRefreshSpec)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NODE_URL", "  https://node.example.com  ")
	t.Setenv("LISTEN_ADDR", ":8080")
	t.Setenv("BLOCK_RANGE", "500")
	t.Setenv("RPC_TIMEOUT", "5s")
	t.Setenv("USD_REFERENCE_TOKEN", "0xABCDEF0000000000000000000000000000000000")

	cfg := Load()

	if cfg.NodeURL != "https://node.example.com" {
		t.Errorf("NodeURL not trimmed: %q", cfg.NodeURL)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.BlockRange != 500 {
		t.Errorf("BlockRange = %d", cfg.BlockRange)
	}
	if cfg.RPCTimeout != 5*time.Second {
		t.Errorf("RPCTimeout = %v", cfg.RPCTimeout)
	}
	if cfg.USDReferenceToken != "0xabcdef0000000000000000000000000000000000" {
		t.Errorf("USDReferenceToken not lowercased: %q", cfg.USDReferenceToken)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("NODE_URL", "https://node.example.com")
	t.Setenv("BLOCK_RANGE", "not-a-number")
	t.Setenv("RPC_TIMEOUT", "soon")

	cfg := Load()

	if cfg.BlockRange != DefaultBlockRange {
		t.Errorf("BlockRange = %d, want default %d", cfg.BlockRange, DefaultBlockRange)
	}
	if cfg.RPCTimeout != DefaultRPCTimeout {
		t.Errorf("RPCTimeout = %v, want default %v", cfg.RPCTimeout, DefaultRPCTimeout)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{NodeURL: "https://node.example.com", BlockRange: 200}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.NodeURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing NODE_URL")
	}

	cfg.NodeURL = "https://node.example.com"
	cfg.BlockRange = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive BLOCK_RANGE")
	}
}
