package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Store is a minimal byte cache with TTL, backed by memory or Redis.
type Store interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SignalCache keeps the most recent analysis per symbol. Entries are
// retained past their freshness window so callers can fall back to a
// stale signal when a new analysis is unavailable.
type SignalCache struct {
	store     Store
	freshFor  time.Duration
	retention time.Duration
	logger    zerolog.Logger
}

// NewSignalCache wraps store. freshFor bounds how old a signal may be
// and still count as fresh; retention bounds how long a stale entry is
// kept at all.
func NewSignalCache(store Store, freshFor, retention time.Duration) *SignalCache {
	if retention < freshFor {
		retention = freshFor
	}
	return &SignalCache{
		store:     store,
		freshFor:  freshFor,
		retention: retention,
		logger:    log.With().Str("component", "signal_cache").Logger(),
	}
}

// Put stores result under its symbol.
func (c *SignalCache) Put(ctx context.Context, result *models.AnalysisResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding cached signal: %w", err)
	}
	if err := c.store.SetBytes(ctx, key(result.Symbol), raw, c.retention); err != nil {
		return fmt.Errorf("caching signal for %s: %w", result.Symbol, err)
	}
	return nil
}

// Get returns the cached analysis for symbol, if any, and whether it is
// still within the freshness window.
func (c *SignalCache) Get(ctx context.Context, symbol string) (result *models.AnalysisResult, fresh bool, err error) {
	raw, ok, err := c.store.GetBytes(ctx, key(symbol))
	if err != nil {
		return nil, false, fmt.Errorf("reading cached signal for %s: %w", symbol, err)
	}
	if !ok {
		return nil, false, nil
	}

	result = &models.AnalysisResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Discarding undecodable cache entry")
		return nil, false, nil
	}

	fresh = time.Since(result.GeneratedAt) <= c.freshFor
	return result, fresh, nil
}

func key(symbol string) string {
	return "signal:" + symbol
}
