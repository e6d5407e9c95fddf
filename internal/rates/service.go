// Package rates computes token conversion rates from observed swap events.
package rates

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ward-analytics/galactus/internal/cache"
	"github.com/ward-analytics/galactus/internal/chain"
	"github.com/ward-analytics/galactus/internal/logging"
	"github.com/ward-analytics/galactus/internal/metrics"
	"github.com/ward-analytics/galactus/internal/storage"
	"github.com/ward-analytics/galactus/internal/uniswap"
)

// Errors surfaced to the API layer.
var (
	// ErrTokenNotInWindow indicates a token had no swap activity in the
	// examined block window.
	ErrTokenNotInWindow = errors.New("token not found in swap window")

	// ErrNoPath indicates no chain of swaps connects the two tokens.
	ErrNoPath = errors.New("no swap path between tokens")
)

// poolResolveWorkers bounds concurrent pool pair lookups against the node.
const poolResolveWorkers = 10

// NodeClient is the subset of the Ethereum client the service uses.
type NodeClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, fromBlock, toBlock uint64, topics []string) ([]chain.Log, error)
	PoolTokens(ctx context.Context, poolAddress string) (string, string, error)
	TokenDecimals(ctx context.Context, tokenAddress string) (int, error)
	TokenSymbol(ctx context.Context, tokenAddress string) (string, error)
}

// Conversion is the result of a conversion rate computation.
type Conversion struct {
	Rate           float64
	Token0Decimals int
	Token1Decimals int
	Token0Symbol   string
	Token1Symbol   string
	Path           []string
	BlockNumber    uint64
}

// Service computes conversion rates between ERC-20 tokens.
type Service struct {
	node    NodeClient
	cache   cache.TokenCache
	audit   storage.AuditStore
	log     *logging.Logger
	metrics *metrics.Metrics

	blockRange   uint64
	usdReference string

	head atomic.Uint64
}

// ServiceConfig holds the service dependencies.
type ServiceConfig struct {
	Node         NodeClient
	Cache        cache.TokenCache
	Audit        storage.AuditStore
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
	BlockRange   int
	USDReference string
}

// NewService creates a conversion rate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Node == nil {
		return nil, fmt.Errorf("node client required")
	}

	tokenCache := cfg.Cache
	if tokenCache == nil {
		tokenCache = cache.NewMemoryCache()
	}
	audit := cfg.Audit
	if audit == nil {
		audit = storage.NewMemoryStore()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	blockRange := cfg.BlockRange
	if blockRange <= 0 {
		blockRange = 200
	}

	return &Service{
		node:         cfg.Node,
		cache:        tokenCache,
		audit:        audit,
		log:          log,
		metrics:      cfg.Metrics,
		blockRange:   uint64(blockRange),
		usdReference: strings.ToLower(cfg.USDReference),
	}, nil
}

// =============================================================================
// Cached metadata
// =============================================================================

// poolTokens resolves a pool's token pair, cache first.
func (s *Service) poolTokens(ctx context.Context, poolAddress string) (string, string, error) {
	token0, token1, err := s.cache.PoolPair(ctx, poolAddress)
	if err == nil {
		s.recordCacheHit("pool_pair")
		return token0, token1, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn(ctx, "pool pair cache read failed", map[string]interface{}{"pool": poolAddress, "error": err.Error()})
	}
	s.recordCacheMiss("pool_pair")

	token0, token1, err = s.node.PoolTokens(ctx, poolAddress)
	if err != nil {
		return "", "", err
	}

	if err := s.cache.SetPoolPair(ctx, poolAddress, token0, token1); err != nil {
		s.log.Warn(ctx, "pool pair cache write failed", map[string]interface{}{"pool": poolAddress, "error": err.Error()})
	}
	return token0, token1, nil
}

// tokenDecimals resolves a token's decimals, cache first.
func (s *Service) tokenDecimals(ctx context.Context, tokenAddress string) (int, error) {
	decimals, err := s.cache.Decimals(ctx, tokenAddress)
	if err == nil {
		s.recordCacheHit("decimals")
		return decimals, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn(ctx, "decimals cache read failed", map[string]interface{}{"token": tokenAddress, "error": err.Error()})
	}
	s.recordCacheMiss("decimals")

	decimals, err = s.node.TokenDecimals(ctx, tokenAddress)
	if err != nil {
		return 0, err
	}

	if err := s.cache.SetDecimals(ctx, tokenAddress, decimals); err != nil {
		s.log.Warn(ctx, "decimals cache write failed", map[string]interface{}{"token": tokenAddress, "error": err.Error()})
	}
	return decimals, nil
}

// tokenSymbol resolves a token's symbol, cache first.
func (s *Service) tokenSymbol(ctx context.Context, tokenAddress string) (string, error) {
	symbol, err := s.cache.Symbol(ctx, tokenAddress)
	if err == nil {
		s.recordCacheHit("symbol")
		return symbol, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn(ctx, "symbol cache read failed", map[string]interface{}{"token": tokenAddress, "error": err.Error()})
	}
	s.recordCacheMiss("symbol")

	symbol, err = s.node.TokenSymbol(ctx, tokenAddress)
	if err != nil {
		return "", err
	}

	if err := s.cache.SetSymbol(ctx, tokenAddress, symbol); err != nil {
		s.log.Warn(ctx, "symbol cache write failed", map[string]interface{}{"token": tokenAddress, "error": err.Error()})
	}
	return symbol, nil
}

func (s *Service) recordCacheHit(kind string) {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(kind)
	}
}

func (s *Service) recordCacheMiss(kind string) {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(kind)
	}
}

// =============================================================================
// Swap window
// =============================================================================

// Swaps returns all Uniswap V3 swap events in the block range with their
// pool token pairs resolved. Zero-amount swaps are dropped.
func (s *Service) Swaps(ctx context.Context, fromBlock, toBlock uint64) ([]uniswap.SwapEvent, error) {
	logs, err := s.node.GetLogs(ctx, fromBlock, toBlock, []string{uniswap.SwapTopic})
	if err != nil {
		return nil, fmt.Errorf("get swap logs: %w", err)
	}

	// Distinct pools, in first-seen order.
	var pools []string
	seen := make(map[string]struct{})
	for _, log := range logs {
		if _, ok := seen[log.Address]; !ok {
			seen[log.Address] = struct{}{}
			pools = append(pools, log.Address)
		}
	}

	pairs, err := s.resolvePoolPairs(ctx, pools)
	if err != nil {
		return nil, err
	}

	swaps := make([]uniswap.SwapEvent, 0, len(logs))
	for _, log := range logs {
		pair := pairs[log.Address]
		swap, err := uniswap.ParseSwap(log, pair[0], pair[1])
		if err != nil {
			s.log.Warn(ctx, "skipping malformed swap log", map[string]interface{}{"tx": log.TxHash, "error": err.Error()})
			continue
		}
		if swap.HasZeroAmount() {
			continue
		}
		swaps = append(swaps, swap)
	}
	return swaps, nil
}

// resolvePoolPairs fetches the token pair of each pool with bounded
// concurrency. The first error aborts the whole batch.
func (s *Service) resolvePoolPairs(ctx context.Context, pools []string) (map[string][2]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		pairs    = make(map[string][2]string, len(pools))
		firstErr error
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	workers := poolResolveWorkers
	if len(pools) < workers {
		workers = len(pools)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pool := range jobs {
				token0, token1, err := s.poolTokens(ctx, pool)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("resolve pool %s: %w", pool, err)
						cancel()
					}
				} else {
					pairs[pool] = [2]string{token0, token1}
				}
				mu.Unlock()
			}
		}()
	}

	for _, pool := range pools {
		select {
		case jobs <- pool:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// =============================================================================
// Conversion
// =============================================================================

// ConversionRate computes the exchange rate between two tokens at the
// given block by pathfinding through swap events around that block.
func (s *Service) ConversionRate(ctx context.Context, token0, token1 string, blockNumber uint64) (Conversion, error) {
	start := time.Now()
	conversion, err := s.conversionRate(ctx, token0, token1, blockNumber)
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordConversion(status)
	}
	if err != nil {
		return Conversion{}, err
	}

	if _, auditErr := s.audit.RecordConversion(ctx, storage.ConversionRecord{
		FromToken:   strings.ToLower(token0),
		ToToken:     strings.ToLower(token1),
		BlockNumber: conversion.BlockNumber,
		Rate:        conversion.Rate,
		PathLength:  len(conversion.Path),
		DurationMS:  time.Since(start).Milliseconds(),
	}); auditErr != nil {
		// Audit is best effort and never fails the request.
		s.log.Warn(ctx, "conversion audit write failed", map[string]interface{}{"error": auditErr.Error()})
	}
	return conversion, nil
}

func (s *Service) conversionRate(ctx context.Context, token0, token1 string, blockNumber uint64) (Conversion, error) {
	token0 = strings.ToLower(token0)
	token1 = strings.ToLower(token1)

	// Token metadata and the swap window are independent; fetch them
	// concurrently.
	var (
		wg                         sync.WaitGroup
		dec0, dec1                 int
		sym0, sym1                 string
		swaps                      []uniswap.SwapEvent
		dec0Err, dec1Err           error
		sym0Err, sym1Err, swapsErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		dec0, dec0Err = s.tokenDecimals(ctx, token0)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		sym0, sym0Err = s.tokenSymbol(ctx, token0)
	}()

	if token1 != token0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec1, dec1Err = s.tokenDecimals(ctx, token1)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			sym1, sym1Err = s.tokenSymbol(ctx, token1)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			fromBlock := blockNumber - s.blockRange/2
			if s.blockRange/2 > blockNumber {
				fromBlock = 0
			}
			toBlock := blockNumber + s.blockRange/2
			swaps, swapsErr = s.Swaps(ctx, fromBlock, toBlock)
		}()
	}
	wg.Wait()

	for _, err := range []error{dec0Err, sym0Err, dec1Err, sym1Err, swapsErr} {
		if err != nil {
			return Conversion{}, err
		}
	}

	// A token converts to itself at par.
	if token0 == token1 {
		return Conversion{
			Rate:           1,
			Token0Decimals: dec0,
			Token1Decimals: dec0,
			Token0Symbol:   sym0,
			Token1Symbol:   sym0,
			Path:           []string{token0},
			BlockNumber:    blockNumber,
		}, nil
	}

	if s.metrics != nil {
		s.metrics.RecordSwapWindow(len(swaps))
	}
	s.log.Debug(ctx, "swap window loaded", map[string]interface{}{
		"from":  token0,
		"to":    token1,
		"block": blockNumber,
		"swaps": len(swaps),
	})

	graph := newTokenGraph()
	for _, swap := range swaps {
		graph.addSwap(swap)
	}

	sourceID, ok := graph.lookup(token0)
	if !ok {
		return Conversion{}, fmt.Errorf("%w: %s", ErrTokenNotInWindow, token0)
	}
	targetID, ok := graph.lookup(token1)
	if !ok {
		return Conversion{}, fmt.Errorf("%w: %s", ErrTokenNotInWindow, token1)
	}

	paths := graph.shortestPaths(sourceID, targetID)
	if len(paths) == 0 {
		return Conversion{}, fmt.Errorf("%w: %s -> %s", ErrNoPath, token0, token1)
	}

	path := paths[0]
	rate, ok := graph.pathRate(path)
	if !ok {
		return Conversion{}, fmt.Errorf("%w: %s -> %s", ErrNoPath, token0, token1)
	}

	// Normalize by token decimals so the rate is in whole-token units.
	rate = rate * math.Pow10(dec0) / math.Pow10(dec1)

	addresses := make([]string, len(path))
	for i, id := range path {
		addresses[i] = graph.addresses[id]
	}

	return Conversion{
		Rate:           rate,
		Token0Decimals: dec0,
		Token1Decimals: dec1,
		Token0Symbol:   sym0,
		Token1Symbol:   sym1,
		Path:           addresses,
		BlockNumber:    blockNumber,
	}, nil
}

// =============================================================================
// USD quotes and chain head
// =============================================================================

// USDPrice quotes a token against the configured USD reference token at
// the current chain head. Without a reference token it returns the
// placeholder value 1.
func (s *Service) USDPrice(ctx context.Context, tokenAddress string) (float64, error) {
	if s.usdReference == "" {
		return 1, nil
	}

	head := s.Head()
	if head == 0 {
		if err := s.RefreshHead(ctx); err != nil {
			return 0, fmt.Errorf("resolve chain head: %w", err)
		}
		head = s.Head()
	}

	conversion, err := s.ConversionRate(ctx, tokenAddress, s.usdReference, head)
	if err != nil {
		return 0, err
	}
	return conversion.Rate, nil
}

// RefreshHead polls the node for the current block height. Scheduled
// periodically from main so USD quotes do not pay for an extra RPC.
func (s *Service) RefreshHead(ctx context.Context) error {
	head, err := s.node.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("refresh head: %w", err)
	}
	s.head.Store(head)
	return nil
}

// Head returns the most recently observed block height, 0 if never polled.
func (s *Service) Head() uint64 {
	return s.head.Load()
}

// RecentConversions exposes the audit trail.
func (s *Service) RecentConversions(ctx context.Context, limit int) ([]storage.ConversionRecord, error) {
	return s.audit.RecentConversions(ctx, limit)
}
