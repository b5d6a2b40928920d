package analyze

import (
	"context"
	"sync"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Manager owns one Engine per symbol and serializes Analyze calls per
// instrument, which is what the regime-transition detection requires.
type Manager struct {
	params   *config.Params
	provider models.SentimentProvider
	opts     []Option

	mu      sync.Mutex
	engines map[string]*managedEngine
}

type managedEngine struct {
	mu     sync.Mutex
	engine *Engine
}

func NewManager(params *config.Params, provider models.SentimentProvider, opts ...Option) *Manager {
	return &Manager{
		params:   params,
		provider: provider,
		opts:     opts,
		engines:  make(map[string]*managedEngine),
	}
}

// Analyze routes the call to the symbol's engine, creating it on first
// use. Calls for the same symbol run one at a time; different symbols
// proceed in parallel.
func (m *Manager) Analyze(ctx context.Context, candles []models.Candle, symbol string) (*models.AnalysisResult, error) {
	me := m.engineFor(symbol)

	me.mu.Lock()
	defer me.mu.Unlock()
	return me.engine.Analyze(ctx, candles, symbol)
}

func (m *Manager) engineFor(symbol string) *managedEngine {
	m.mu.Lock()
	defer m.mu.Unlock()

	me, ok := m.engines[symbol]
	if !ok {
		me = &managedEngine{engine: NewEngine(m.params, m.provider, m.opts...)}
		m.engines[symbol] = me
	}
	return me
}
