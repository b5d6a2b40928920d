package watch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/analyze"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/cache"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Store lists the symbols that currently have subscribers.
type Store interface {
	GetSubscribedSymbols(ctx context.Context) ([]string, error)
}

// Watcher periodically re-analyzes every symbol that has at least one
// subscriber and pushes the outcome to the notifier. Failures on one
// symbol never stop the sweep.
type Watcher struct {
	manager  *analyze.Manager
	source   models.CandleSource
	signals  *cache.SignalCache
	store    Store
	notifier models.SignalNotifier

	interval    time.Duration
	timeframe   string
	candleCount int
	static      []string
	logger      zerolog.Logger
}

// Options configures a Watcher. Store and Notifier may be nil when
// persistence or delivery is disabled.
type Options struct {
	Manager     *analyze.Manager
	Source      models.CandleSource
	Signals     *cache.SignalCache
	Store       Store
	Notifier    models.SignalNotifier
	Interval    time.Duration
	Timeframe   string
	CandleCount int
	Symbols     []string
}

// New builds a Watcher.
func New(opts Options) *Watcher {
	w := &Watcher{
		manager:     opts.Manager,
		source:      opts.Source,
		signals:     opts.Signals,
		store:       opts.Store,
		notifier:    opts.Notifier,
		interval:    opts.Interval,
		timeframe:   opts.Timeframe,
		candleCount: opts.CandleCount,
		static:      opts.Symbols,
		logger:      log.With().Str("component", "watcher").Logger(),
	}
	return w
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watcher) sweep(ctx context.Context) {
	symbols := w.symbols(ctx)
	if len(symbols) == 0 {
		return
	}
	w.logger.Debug().Strs("symbols", symbols).Msg("Starting sweep")

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		w.analyzeOne(ctx, symbol)
	}
}

func (w *Watcher) symbols(ctx context.Context) []string {
	seen := make(map[string]bool, len(w.static))
	var out []string
	for _, s := range w.static {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if w.store != nil {
		subscribed, err := w.store.GetSubscribedSymbols(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to list subscribed symbols")
		}
		for _, s := range subscribed {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func (w *Watcher) analyzeOne(ctx context.Context, symbol string) {
	candles, err := w.source.GetCandles(ctx, symbol, w.timeframe, w.candleCount)
	if err != nil {
		w.logger.Error().Err(err).Str("symbol", symbol).Msg("Candle fetch failed")
		return
	}

	result, err := w.manager.Analyze(ctx, candles, symbol)
	if err != nil {
		w.logger.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
		return
	}

	if w.signals != nil {
		if err := w.signals.Put(ctx, result); err != nil {
			w.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache signal")
		}
	}
	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, result); err != nil {
			w.logger.Error().Err(err).Str("symbol", symbol).Msg("Notification failed")
		}
	}
}
