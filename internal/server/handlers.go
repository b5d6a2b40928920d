package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/analyze"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/cache"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

const (
	defaultInterval = "1h"
	defaultLimit    = 200
	maxLimit        = 1000
)

// SignalHandler serves on-demand analyses. A fresh cached result is
// returned directly; otherwise candles are fetched and analyzed, and if
// that fails a stale cached result is served as a degraded answer.
type SignalHandler struct {
	manager *analyze.Manager
	source  models.CandleSource
	signals *cache.SignalCache
	logger  zerolog.Logger
}

func NewSignalHandler(manager *analyze.Manager, source models.CandleSource, signals *cache.SignalCache) *SignalHandler {
	return &SignalHandler{
		manager: manager,
		source:  source,
		signals: signals,
		logger:  log.With().Str("component", "signal_handler").Logger(),
	}
}

type signalResponse struct {
	*models.AnalysisResult
	Stale bool `json:"stale"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetSignal handles GET /api/v1/signal?symbol=BTCUSDT&interval=1h&limit=200.
func (h *SignalHandler) GetSignal(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "symbol query parameter is required"})
	}

	interval := c.QueryParam("interval")
	if interval == "" {
		interval = defaultInterval
	}

	limit := defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < models.MinCandles || parsed > maxLimit {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be an integer between 30 and 1000"})
		}
		limit = parsed
	}

	ctx := c.Request().Context()

	if cached, fresh, err := h.signals.Get(ctx, symbol); err == nil && fresh {
		return c.JSON(http.StatusOK, signalResponse{AnalysisResult: cached})
	}

	candles, err := h.source.GetCandles(ctx, symbol, interval, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("Candle fetch failed")
		return h.degraded(c, symbol, http.StatusBadGateway, "upstream candle source unavailable")
	}

	result, err := h.manager.Analyze(ctx, candles, symbol)
	if err != nil {
		var insufficient *models.InsufficientDataError
		if errors.As(err, &insufficient) {
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: insufficient.Error()})
		}
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
		return h.degraded(c, symbol, http.StatusInternalServerError, "analysis failed")
	}

	if err := h.signals.Put(ctx, result); err != nil {
		h.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache signal")
	}
	return c.JSON(http.StatusOK, signalResponse{AnalysisResult: result})
}

// degraded falls back to a stale cache entry, or reports the failure.
func (h *SignalHandler) degraded(c echo.Context, symbol string, status int, msg string) error {
	cached, _, err := h.signals.Get(c.Request().Context(), symbol)
	if err == nil && cached != nil {
		h.logger.Warn().Str("symbol", symbol).Msg("Serving stale cached signal")
		return c.JSON(http.StatusOK, signalResponse{AnalysisResult: cached, Stale: true})
	}
	return c.JSON(status, errorResponse{Error: msg})
}
