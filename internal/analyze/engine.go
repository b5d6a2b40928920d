package analyze

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/calculate"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/ensemble"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/patterns"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/regime"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/risk"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/sentiment"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/smc"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/weights"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Metrics is the subset of instrumentation the engine reports into.
type Metrics interface {
	RecordAnalysis(symbol string, signal models.Signal, score float64, duration time.Duration)
	RecordSentimentFailure(symbol string)
}

// Engine runs the full hybrid analysis for one instrument stream. The
// only cross-call state is the regime history used for transition
// detection, so concurrent Analyze calls on the same Engine must be
// serialized by the caller (see Manager).
type Engine struct {
	params     *config.Params
	classifier *regime.Classifier
	structure  *smc.Analyzer
	recognizer *patterns.Recognizer
	sentiment  *sentiment.Adapter
	risk       *risk.Calculator
	history    *regime.History
	metrics    Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics attaches an instrumentation recorder.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(params *config.Params, provider models.SentimentProvider, opts ...Option) *Engine {
	e := &Engine{
		params:     params,
		classifier: regime.NewClassifier(params),
		structure:  smc.NewAnalyzer(params),
		recognizer: patterns.NewRecognizer(),
		sentiment:  sentiment.NewAdapter(provider, params),
		risk:       risk.NewCalculator(params),
		history:    regime.NewHistory(),
		logger:     log.With().Str("component", "engine").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics != nil {
		e.sentiment.OnFailure(e.metrics.RecordSentimentFailure)
	}
	return e
}

// Analyze runs the hybrid pipeline over an ascending candle series and
// returns the blended signal. The sentiment fetch is the only
// suspension point: it runs concurrently with the local computations
// and is awaited at aggregation. Input candles are never mutated.
func (e *Engine) Analyze(ctx context.Context, candles []models.Candle, symbol string) (*models.AnalysisResult, error) {
	started := e.now()

	// Malformed candles are dropped before anything reads the series,
	// so NaN or zeroed fields never reach a component or the result.
	valid := models.FilterValid(candles)
	if len(valid) < models.MinCandles {
		return nil, &models.InsufficientDataError{Got: len(valid), Want: models.MinCandles}
	}

	// Kick the network-bound component off first.
	sentimentCh := make(chan models.ComponentScore, 1)
	go func() {
		sentimentCh <- e.sentiment.Score(ctx, symbol)
	}()

	classification := e.classifier.Classify(valid)
	coreScore := scoreCore(valid, e.params)
	smcScore := e.structure.Score(valid)
	patternScore := e.recognizer.Score(valid)

	sentimentScore := <-sentimentCh

	mlScore := ensemble.Score(ensemble.Inputs{
		Core:      coreScore,
		SMC:       smcScore,
		Patterns:  patternScore,
		Sentiment: sentimentScore,
		Candles:   valid,
	})

	w := weights.Adapt(classification.Regime, classification.Features.VolatilityPct)

	components := map[string]models.WeightedComponent{
		models.ComponentRSIMACD:   {ComponentScore: coreScore, Weight: w.RSIMACD},
		models.ComponentSMC:       {ComponentScore: smcScore, Weight: w.SMC},
		models.ComponentPatterns:  {ComponentScore: patternScore, Weight: w.Patterns},
		models.ComponentSentiment: {ComponentScore: sentimentScore, Weight: w.Sentiment},
		models.ComponentML:        {ComponentScore: mlScore, Weight: w.ML},
	}

	var finalScore, confidence float64
	for _, c := range components {
		finalScore += c.Score * c.Weight
		confidence += c.Confidence * c.Weight
	}
	finalScore = calculate.Clamp(finalScore, 0, 100)
	confidence = calculate.Clamp(confidence, 0, 100)

	finalSignal := models.SignalHold
	if finalScore > 60 {
		finalSignal = models.SignalBuy
	} else if finalScore < 40 {
		finalSignal = models.SignalSell
	}

	stopLoss, targets := e.risk.Levels(valid, finalSignal)

	e.history.Push(classification.Regime, classification.Confidence, started)
	transition := e.history.Transition()

	result := &models.AnalysisResult{
		ID:               uuid.NewString(),
		Symbol:           symbol,
		FinalScore:       finalScore,
		FinalSignal:      finalSignal,
		Confidence:       confidence,
		CurrentPrice:     valid[len(valid)-1].Close,
		StopLoss:         stopLoss,
		TakeProfitLevels: targets,
		Components:       components,
		Regime:           classification.Regime,
		RegimeConfidence: classification.Confidence,
		Transition:       transition,
		GeneratedAt:      started,
	}

	duration := e.now().Sub(started)
	if e.metrics != nil {
		e.metrics.RecordAnalysis(symbol, finalSignal, finalScore, duration)
	}

	e.logger.Info().
		Str("symbol", symbol).
		Str("signal", string(finalSignal)).
		Float64("score", finalScore).
		Str("regime", string(classification.Regime)).
		Dur("took", duration).
		Msg("analysis complete")

	return result, nil
}
