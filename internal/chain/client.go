// Package chain provides Ethereum JSON-RPC access for the conversion service.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/ward-analytics/galactus/internal/logging"
	"github.com/ward-analytics/galactus/internal/metrics"
)

// Client is an Ethereum JSON-RPC client. It rate-limits outgoing calls and
// retries transient node failures (429, 5xx) with backoff.
type Client struct {
	nodeURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	log        *logging.Logger
	metrics    *metrics.Metrics
}

// Config holds client configuration.
type Config struct {
	NodeURL    string
	Timeout    time.Duration
	RateLimit  int // requests per second against the node, 0 = unlimited
	Burst      int
	MaxRetries int
	Backoff    time.Duration
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
}

// NewClient creates a new Ethereum client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.NodeURL == "" {
		return nil, fmt.Errorf("node URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	backoff := cfg.Backoff
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}

	return &Client{
		nodeURL: cfg.NodeURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: maxRetries,
		backoff:    backoff,
		log:        log,
		metrics:    cfg.Metrics,
	}, nil
}

// Call makes a JSON-RPC call to the node. Rate-limited node responses are
// retried with exponential backoff until maxRetries is exhausted or the
// context expires.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	start := time.Now()
	result, err := c.call(ctx, method, params)
	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordRPCCall(method, status, time.Since(start))
	}
	return result, err
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff*time.Duration(1<<(attempt-1))); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.nodeURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("execute request: %w", err)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			c.log.Warn(ctx, "node returned transient error", map[string]interface{}{
				"method":  method,
				"status":  resp.StatusCode,
				"attempt": attempt,
			})
			lastErr = fmt.Errorf("node returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("node returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}

		var rpcResp RPCResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		if rpcResp.Error != nil {
			return nil, rpcResp.Error
		}
		return rpcResp.Result, nil
	}

	return nil, fmt.Errorf("call %s: retries exhausted: %w", method, lastErr)
}

// BlockNumber returns the current chain head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}

	var quantity string
	if err := json.Unmarshal(result, &quantity); err != nil {
		return 0, fmt.Errorf("unmarshal block number: %w", err)
	}
	return parseHexUint(quantity)
}

// GetLogs returns all log entries matching the topics within the block range.
func (c *Client) GetLogs(ctx context.Context, fromBlock, toBlock uint64, topics []string) ([]Log, error) {
	filter := map[string]interface{}{
		"fromBlock": hexUint(fromBlock),
		"toBlock":   hexUint(toBlock),
		"topics":    topics,
	}

	result, err := c.Call(ctx, "eth_getLogs", []interface{}{filter})
	if err != nil {
		return nil, err
	}

	entries := gjson.ParseBytes(result)
	if !entries.IsArray() {
		return nil, fmt.Errorf("eth_getLogs: expected array result")
	}

	var logs []Log
	var parseErr error
	entries.ForEach(func(_, entry gjson.Result) bool {
		blockNumber, err := parseHexUint(entry.Get("blockNumber").String())
		if err != nil {
			parseErr = fmt.Errorf("parse blockNumber: %w", err)
			return false
		}
		logIndex, err := parseHexUint(entry.Get("logIndex").String())
		if err != nil {
			parseErr = fmt.Errorf("parse logIndex: %w", err)
			return false
		}

		var topicList []string
		entry.Get("topics").ForEach(func(_, t gjson.Result) bool {
			topicList = append(topicList, t.String())
			return true
		})

		logs = append(logs, Log{
			Address:     strings.ToLower(entry.Get("address").String()),
			Topics:      topicList,
			Data:        entry.Get("data").String(),
			BlockNumber: blockNumber,
			TxHash:      entry.Get("transactionHash").String(),
			LogIndex:    logIndex,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return logs, nil
}

// CallContract performs an eth_call against the given contract at the
// latest block and returns the raw hex result.
func (c *Client) CallContract(ctx context.Context, to, data string) (string, error) {
	result, err := c.Call(ctx, "eth_call", []interface{}{CallParams{To: to, Data: data}, "latest"})
	if err != nil {
		return "", err
	}

	var hexResult string
	if err := json.Unmarshal(result, &hexResult); err != nil {
		return "", fmt.Errorf("unmarshal call result: %w", err)
	}
	return hexResult, nil
}

func hexUint(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

func parseHexUint(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	return strconv.ParseUint(s, 16, 64)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
