package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		NodeURL:    server.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func rpcResult(t *testing.T, w http.ResponseWriter, result string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"jsonrpc":"2.0","result":` + result + `,"id":1}`)); err != nil {
		t.Fatalf("write response: %v", err)
	}
}

func TestBlockNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "eth_blockNumber" {
			t.Fatalf("unexpected method %q", req.Method)
		}
		rpcResult(t, w, `"0x12a05f2"`)
	})

	head, err := client.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("block number: %v", err)
	}
	if head != 19531762 {
		t.Fatalf("expected 19531762, got %d", head)
	}
}

func TestCallRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		rpcResult(t, w, `"0x1"`)
	})

	head, err := client.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if head != 1 {
		t.Fatalf("expected 1, got %d", head)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestCallRetriesExhausted(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := client.BlockNumber(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestCallSurfacesRPCError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"header not found"},"id":1}`))
	})

	_, err := client.Call(context.Background(), "eth_getLogs", nil)
	if err == nil {
		t.Fatal("expected rpc error")
	}
	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected *RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != -32000 {
		t.Fatalf("unexpected code %d", rpcErr.Code)
	}
}

func TestCallContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	if _, err := client.BlockNumber(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestGetLogs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "eth_getLogs" {
			t.Fatalf("unexpected method %q", req.Method)
		}
		filter, ok := req.Params[0].(map[string]interface{})
		if !ok {
			t.Fatalf("unexpected filter type %T", req.Params[0])
		}
		if filter["fromBlock"] != "0x64" || filter["toBlock"] != "0xc8" {
			t.Fatalf("unexpected block range: %v .. %v", filter["fromBlock"], filter["toBlock"])
		}

		rpcResult(t, w, `[
			{
				"address": "0xABCDEF0123456789abcdef0123456789ABCDEF01",
				"topics": ["0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67"],
				"data": "0xdead",
				"blockNumber": "0x65",
				"transactionHash": "0xfeed",
				"logIndex": "0x2"
			}
		]`)
	})

	logs, err := client.GetLogs(context.Background(), 100, 200, []string{"0xc420"})
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}

	log := logs[0]
	if log.Address != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Fatalf("address not lowercased: %s", log.Address)
	}
	if log.BlockNumber != 101 || log.LogIndex != 2 {
		t.Fatalf("unexpected block/index: %d/%d", log.BlockNumber, log.LogIndex)
	}
	if len(log.Topics) != 1 || log.TxHash != "0xfeed" || log.Data != "0xdead" {
		t.Fatalf("unexpected log fields: %+v", log)
	}
}
