// Package httpapi exposes the conversion rate service over HTTP.
package httpapi

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ward-analytics/galactus/internal/chain"
	"github.com/ward-analytics/galactus/internal/logging"
	"github.com/ward-analytics/galactus/internal/metrics"
	"github.com/ward-analytics/galactus/internal/middleware"
	"github.com/ward-analytics/galactus/internal/rates"
	"github.com/ward-analytics/galactus/internal/system"
)

const (
	ServiceName = "Galactus"
	Version     = "1.0.0"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Handler serves the token conversion API.
type Handler struct {
	service *rates.Service
	log     *logging.Logger
	metrics *metrics.Metrics
	router  *mux.Router
	started time.Time

	// Optional dependency probes for /health.
	cachePing func() error
	dbPing    func() error
}

// HandlerConfig holds handler dependencies.
type HandlerConfig struct {
	Service      *rates.Service
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
	RateLimiter  *middleware.RateLimiter
	CachePing    func() error
	DatabasePing func() error
}

// NewHandler builds the router with all routes and middleware attached.
func NewHandler(cfg HandlerConfig) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}

	h := &Handler{
		service:   cfg.Service,
		log:       log,
		metrics:   cfg.Metrics,
		router:    mux.NewRouter(),
		started:   time.Now(),
		cachePing: cfg.CachePing,
		dbPing:    cfg.DatabasePing,
	}

	h.router.Use(middleware.Recovery(log))
	h.router.Use(middleware.Logging(log))
	if cfg.Metrics != nil {
		h.router.Use(middleware.Metrics(cfg.Metrics))
	}
	h.router.Use(middleware.CORS)
	if cfg.RateLimiter != nil {
		h.router.Use(cfg.RateLimiter.Handler)
	}

	h.registerRoutes()
	return h
}

// Router returns the configured router.
func (h *Handler) Router() *mux.Router {
	return h.router
}

func (h *Handler) registerRoutes() {
	h.router.HandleFunc("/tokens/{from}/to/{to}", h.handleExchangeRate).Methods("GET", "OPTIONS")
	h.router.HandleFunc("/tokens/{address}", h.handleUSDPrice).Methods("GET", "OPTIONS")
	h.router.HandleFunc("/conversions", h.handleRecentConversions).Methods("GET", "OPTIONS")
	h.router.HandleFunc("/health", h.handleHealth).Methods("GET")
	h.router.HandleFunc("/info", h.handleInfo).Methods("GET")
	if h.metrics != nil {
		h.router.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}
	// Undocumented probe route kept from the original app.
	h.router.HandleFunc("/test", h.handleTest).Methods("GET")
}

// =============================================================================
// Token endpoints
// =============================================================================

// exchangeRateResponse mirrors the original API's conversion payload.
type exchangeRateResponse struct {
	SourceTokenAddress string   `json:"source_token_address"`
	TargetTokenAddress string   `json:"target_token_address"`
	ExchangeRate       float64  `json:"exchange_rate"`
	Token0Decimals     int      `json:"token0_decimals"`
	Token1Decimals     int      `json:"token1_decimals"`
	Token0Symbol       string   `json:"token0_symbol"`
	Token1Symbol       string   `json:"token1_symbol"`
	TokenPairPath      []string `json:"token_pair_path"`
	BlockNumber        uint64   `json:"block_number"`
}

func (h *Handler) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	from := strings.ToLower(vars["from"])
	to := strings.ToLower(vars["to"])

	if !addressPattern.MatchString(from) {
		WriteError(w, http.StatusBadRequest, "invalid source token address")
		return
	}
	if !addressPattern.MatchString(to) {
		WriteError(w, http.StatusBadRequest, "invalid target token address")
		return
	}

	blockNumber := h.service.Head()
	if raw := r.URL.Query().Get("block"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid block number")
			return
		}
		blockNumber = parsed
	}
	if blockNumber == 0 {
		if err := h.service.RefreshHead(r.Context()); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		blockNumber = h.service.Head()
	}

	conversion, err := h.service.ConversionRate(r.Context(), from, to, blockNumber)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, exchangeRateResponse{
		SourceTokenAddress: from,
		TargetTokenAddress: to,
		ExchangeRate:       conversion.Rate,
		Token0Decimals:     conversion.Token0Decimals,
		Token1Decimals:     conversion.Token1Decimals,
		Token0Symbol:       conversion.Token0Symbol,
		Token1Symbol:       conversion.Token1Symbol,
		TokenPairPath:      conversion.Path,
		BlockNumber:        conversion.BlockNumber,
	})
}

func (h *Handler) handleUSDPrice(w http.ResponseWriter, r *http.Request) {
	address := strings.ToLower(mux.Vars(r)["address"])
	if !addressPattern.MatchString(address) {
		WriteError(w, http.StatusBadRequest, "invalid token address")
		return
	}

	price, err := h.service.USDPrice(r.Context(), address)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token_address": address,
		"usd_price":     price,
	})
}

func (h *Handler) handleRecentConversions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.service.RecentConversions(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, records)
}

// writeServiceError maps service errors onto HTTP statuses. All error
// bodies carry the original API's {"detail": ...} shape.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chain.ErrContractNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, rates.ErrTokenNotInWindow), errors.Is(err, rates.ErrNoPath):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error(r.Context(), "request failed", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// =============================================================================
// Operational endpoints
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := map[string]interface{}{
		"head": h.service.Head(),
	}

	status := "healthy"
	code := http.StatusOK

	if h.cachePing != nil {
		if err := h.cachePing(); err != nil {
			details["cache"] = err.Error()
			status = "degraded"
		} else {
			details["cache"] = "ok"
		}
	}
	if h.dbPing != nil {
		if err := h.dbPing(); err != nil {
			details["database"] = err.Error()
			status = "degraded"
		} else {
			details["database"] = "ok"
		}
	}

	WriteJSON(w, code, map[string]interface{}{
		"status":  status,
		"details": details,
	})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service": ServiceName,
		"version": Version,
		"uptime":  time.Since(h.started).String(),
		"system":  system.Snapshot(r.Context()),
	})
}

func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": "This is a test endpoint."})
}
