package sentiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Adapter wraps an external sentiment provider into a component score.
// Provider failures never surface to the caller: after the retry budget
// is spent the adapter degrades to a neutral score.
type Adapter struct {
	provider  models.SentimentProvider
	params    *config.Params
	logger    zerolog.Logger
	onFailure func(symbol string)
}

// OnFailure registers a hook invoked whenever the provider could not be
// reached and the adapter fell back to neutral.
func (a *Adapter) OnFailure(fn func(symbol string)) {
	a.onFailure = fn
}

func NewAdapter(provider models.SentimentProvider, params *config.Params) *Adapter {
	return &Adapter{
		provider: provider,
		params:   params,
		logger:   log.With().Str("component", "sentiment").Logger(),
	}
}

// Score fetches sentiment with retries and maps the [-1,1] value onto a
// component score: 50+50*value, signal from the sign, confidence
// |value|*50.
func (a *Adapter) Score(ctx context.Context, symbol string) models.ComponentScore {
	p := a.params.Sentiment
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.TimeoutSec*float64(time.Second)))
	defer cancel()

	value, err := a.fetch(ctx, symbol)
	if err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("sentiment unavailable, using neutral")
		if a.onFailure != nil {
			a.onFailure(symbol)
		}
		return models.NeutralScore()
	}

	value = clampValue(value)

	signal := models.SignalHold
	if value > 0 {
		signal = models.SignalBuy
	} else if value < 0 {
		signal = models.SignalSell
	}

	return models.ComponentScore{
		Score:      50 + 50*value,
		Signal:     signal,
		Confidence: math.Abs(value) * 50,
		Detail:     []string{fmt.Sprintf("provider sentiment %.2f", value)},
	}
}

func (a *Adapter) fetch(ctx context.Context, symbol string) (float64, error) {
	p := a.params.Sentiment

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxInterval = time.Duration(p.MaxIntervalSec * float64(time.Second))

	var value float64
	operation := func() error {
		var err error
		value, err = a.provider.GetSentiment(ctx, symbol)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(strategy, uint64(p.MaxRetries)), ctx))
	if err != nil {
		return 0, fmt.Errorf("fetching sentiment: %w", err)
	}
	return value, nil
}

func clampValue(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
