package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

type stubSentiment struct {
	value float64
	err   error
	block bool
}

func (s *stubSentiment) GetSentiment(ctx context.Context, symbol string) (float64, error) {
	if s.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return s.value, s.err
}

func fastParams() *config.Params {
	p := config.Default()
	p.Sentiment.TimeoutSec = 0.2
	p.Sentiment.MaxIntervalSec = 0.01
	p.Sentiment.MaxRetries = 0
	return p
}

func newTestEngine(provider models.SentimentProvider) *Engine {
	return NewEngine(fastParams(), provider)
}

// Scenario: 100 candles rising a constant 0.2% per candle with flat
// volume. The regime must be trending-bullish, the final score biased
// toward buying and the momentum-core weight lifted above its base.
func TestAnalyzeTrendingScenario(t *testing.T) {
	candles := generateTestCandles(100, func(i int) models.Candle {
		close := 100 * pow(1.002, i)
		return models.Candle{
			Open: close * 0.999, High: close * 1.001,
			Low: close * 0.998, Close: close, Volume: 1000,
		}
	})

	e := newTestEngine(&stubSentiment{value: 0})
	result, err := e.Analyze(context.Background(), candles, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}

	if result.Regime != models.RegimeTrendingBullish {
		t.Errorf("regime = %v, want trending-bullish", result.Regime)
	}
	if result.FinalScore <= 50 {
		t.Errorf("final score = %v, want a bullish bias above 50", result.FinalScore)
	}
	if result.FinalSignal == models.SignalSell {
		t.Errorf("trending-up series must not signal sell")
	}

	core := result.Components[models.ComponentRSIMACD]
	if core.Weight <= 0.40 || core.Weight > 0.50 {
		t.Errorf("rsiMacd weight = %v, want in (0.40, 0.50]", core.Weight)
	}
}

// Scenario: 100 candles oscillating inside a fixed band around 50,000.
// The regime is ranging or calm and the patterns weight rises above its
// 0.20 base.
func TestAnalyzeRangingScenario(t *testing.T) {
	candles := generateTestCandles(100, func(i int) models.Candle {
		close := 50_000.0
		if i%2 == 0 {
			close = 50_500
		}
		return models.Candle{
			Open: close, High: close + 150,
			Low: close - 150, Close: close, Volume: 1000,
		}
	})

	e := newTestEngine(&stubSentiment{value: 0})
	result, err := e.Analyze(context.Background(), candles, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}

	if result.Regime != models.RegimeRanging && result.Regime != models.RegimeCalm {
		t.Errorf("regime = %v, want ranging or calm", result.Regime)
	}
	if w := result.Components[models.ComponentPatterns].Weight; w <= 0.20 {
		t.Errorf("patterns weight = %v, want > 0.20", w)
	}
}

// Scenario: fewer than 30 candles must fail with InsufficientDataError.
func TestAnalyzeInsufficientData(t *testing.T) {
	candles := generateTestCandles(10, func(i int) models.Candle {
		return models.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	})

	e := newTestEngine(&stubSentiment{value: 0})
	_, err := e.Analyze(context.Background(), candles, "BTCUSDT")

	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error = %v, want InsufficientDataError", err)
	}
	if insufficient.Got != 10 || insufficient.Want != models.MinCandles {
		t.Errorf("unexpected error payload: %+v", insufficient)
	}
}

// Scenario: a NaN-poisoned tail candle is dropped before any component
// reads the series. Every level in the result stays finite, the
// reference price comes from the last well-formed candle and the
// result still serializes to JSON.
func TestAnalyzeDropsMalformedTailCandle(t *testing.T) {
	candles := generateTestCandles(61, func(i int) models.Candle {
		close := 100 * pow(1.002, i)
		return models.Candle{
			Open: close * 0.999, High: close * 1.001,
			Low: close * 0.998, Close: close, Volume: 1000,
		}
	})
	candles[60].High = math.NaN()
	candles[60].Close = math.NaN()

	e := newTestEngine(&stubSentiment{value: 0})
	result, err := e.Analyze(context.Background(), candles, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}

	if want := candles[59].Close; result.CurrentPrice != want {
		t.Errorf("current price = %v, want last well-formed close %v", result.CurrentPrice, want)
	}
	for name, v := range map[string]float64{
		"finalScore":       result.FinalScore,
		"confidence":       result.Confidence,
		"stopLoss":         result.StopLoss,
		"regimeConfidence": result.RegimeConfidence,
	} {
		if math.IsNaN(v) {
			t.Errorf("%s is NaN", name)
		}
	}
	for _, tp := range result.TakeProfitLevels {
		if math.IsNaN(tp.Level) {
			t.Errorf("take-profit %s is NaN", tp.Type)
		}
	}
	if _, err := json.Marshal(result); err != nil {
		t.Errorf("result must serialize to JSON: %v", err)
	}
}

// Scenario: the minimum-length check counts only well-formed candles,
// so a series padded with zeroed rows still fails fast.
func TestAnalyzeMinCandlesCountsWellFormedOnly(t *testing.T) {
	candles := generateTestCandles(35, func(i int) models.Candle {
		if i >= 10 {
			return models.Candle{}
		}
		return models.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	})

	e := newTestEngine(&stubSentiment{value: 0})
	_, err := e.Analyze(context.Background(), candles, "BTCUSDT")

	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error = %v, want InsufficientDataError", err)
	}
	if insufficient.Got != 10 {
		t.Errorf("got = %d, want the 10 well-formed candles counted", insufficient.Got)
	}
}

// Scenario: the sentiment provider hangs until the timeout. The
// component degrades to neutral and the pipeline still returns.
func TestAnalyzeSentimentTimeout(t *testing.T) {
	candles := generateTestCandles(60, func(i int) models.Candle {
		return models.Candle{Open: 100, High: 102, Low: 98, Close: 100, Volume: 1000}
	})

	e := newTestEngine(&stubSentiment{block: true})
	result, err := e.Analyze(context.Background(), candles, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}

	s := result.Components[models.ComponentSentiment]
	if s.Score != 50 || s.Signal != models.SignalHold || s.Confidence != 0 {
		t.Errorf("sentiment should be neutral on timeout, got %+v", s)
	}
}

func TestAnalyzeSentimentFailureIsNeutral(t *testing.T) {
	candles := generateTestCandles(60, func(i int) models.Candle {
		return models.Candle{Open: 100, High: 102, Low: 98, Close: 100, Volume: 1000}
	})

	e := newTestEngine(&stubSentiment{err: errors.New("provider down")})
	result, err := e.Analyze(context.Background(), candles, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if s := result.Components[models.ComponentSentiment]; s.Score != 50 {
		t.Errorf("sentiment should be neutral on failure, got %+v", s)
	}
}

func TestAnalyzeRiskLevelOrdering(t *testing.T) {
	// Strongly bullish everything: deep oversold bounce plus positive
	// sentiment pushes the final signal to buy.
	candles := generateTestCandles(100, func(i int) models.Candle {
		close := 100 * pow(1.002, i)
		return models.Candle{
			Open: close * 0.999, High: close * 1.001,
			Low: close * 0.998, Close: close, Volume: 1000,
		}
	})

	e := newTestEngine(&stubSentiment{value: 0.9})
	result, err := e.Analyze(context.Background(), candles, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}

	price := result.CurrentPrice
	tps := result.TakeProfitLevels
	if len(tps) != 3 {
		t.Fatalf("expected 3 take-profit levels, got %d", len(tps))
	}

	switch result.FinalSignal {
	case models.SignalSell:
		if !(result.StopLoss > price && price > tps[0].Level && tps[0].Level > tps[1].Level && tps[1].Level > tps[2].Level) {
			t.Errorf("sell levels out of order: stop=%v price=%v tps=%+v", result.StopLoss, price, tps)
		}
	default:
		if !(result.StopLoss < price && price < tps[0].Level && tps[0].Level < tps[1].Level && tps[1].Level < tps[2].Level) {
			t.Errorf("buy levels out of order: stop=%v price=%v tps=%+v", result.StopLoss, price, tps)
		}
	}
}

func TestAnalyzeBounds(t *testing.T) {
	e := newTestEngine(&stubSentiment{value: 0.4})
	series := [][]models.Candle{
		generateTestCandles(100, func(i int) models.Candle {
			close := 100 * pow(1.002, i)
			return models.Candle{Open: close * 0.999, High: close * 1.001, Low: close * 0.998, Close: close, Volume: 1000}
		}),
		generateTestCandles(100, func(i int) models.Candle {
			close := 100 * pow(0.997, i)
			return models.Candle{Open: close * 1.001, High: close * 1.002, Low: close * 0.999, Close: close, Volume: 2000}
		}),
		generateTestCandles(100, func(i int) models.Candle {
			close := 100 + 3*float64(i%5)
			return models.Candle{Open: close, High: close + 4, Low: close - 4, Close: close, Volume: 1000 + float64(i)*40}
		}),
	}

	for i, candles := range series {
		result, err := e.Analyze(context.Background(), candles, "BTCUSDT")
		if err != nil {
			t.Fatalf("series %d: %v", i, err)
		}
		if result.FinalScore < 0 || result.FinalScore > 100 {
			t.Errorf("series %d: final score out of range: %v", i, result.FinalScore)
		}
		if result.Confidence < 0 || result.Confidence > 100 {
			t.Errorf("series %d: confidence out of range: %v", i, result.Confidence)
		}
		var sum float64
		for _, c := range result.Components {
			sum += c.Weight
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Errorf("series %d: weights sum = %v, want 1", i, sum)
		}
	}
}

// Same immutable series twice through the same engine: everything but
// the history bookkeeping (transition, id, timestamps) is identical.
func TestAnalyzeIdempotent(t *testing.T) {
	candles := generateTestCandles(100, func(i int) models.Candle {
		close := 100 * pow(1.002, i)
		return models.Candle{
			Open: close * 0.999, High: close * 1.001,
			Low: close * 0.998, Close: close, Volume: 1000,
		}
	})

	e := newTestEngine(&stubSentiment{value: 0.3})
	first, err := e.Analyze(context.Background(), candles, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Analyze(context.Background(), candles, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}

	if first.FinalScore != second.FinalScore ||
		first.FinalSignal != second.FinalSignal ||
		first.Confidence != second.Confidence ||
		first.Regime != second.Regime ||
		first.RegimeConfidence != second.RegimeConfidence ||
		first.StopLoss != second.StopLoss {
		t.Errorf("repeated analysis drifted:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	// Same regime both times: no transition on either call.
	if second.Transition != nil {
		t.Errorf("unexpected transition: %+v", second.Transition)
	}
}

func TestAnalyzeDoesNotMutateInput(t *testing.T) {
	candles := generateTestCandles(60, func(i int) models.Candle {
		return models.Candle{Open: 100, High: 102, Low: 98, Close: 100 + float64(i%3), Volume: 1000}
	})
	snapshot := make([]models.Candle, len(candles))
	copy(snapshot, candles)

	e := newTestEngine(&stubSentiment{value: 0.5})
	if _, err := e.Analyze(context.Background(), candles, "BTCUSDT"); err != nil {
		t.Fatal(err)
	}

	for i := range candles {
		if candles[i] != snapshot[i] {
			t.Fatalf("input candle %d mutated: %+v vs %+v", i, candles[i], snapshot[i])
		}
	}
}

func TestScoreCoreOversoldWithPositiveMACD(t *testing.T) {
	// A steep decline that decelerates into a floor. Every change is
	// still a loss so the RSI pins oversold, but the MACD line rises
	// toward zero and pulls ahead of its lagging signal line.
	candles := generateTestCandles(100, func(i int) models.Candle {
		close := 300 - float64(i)
		if i >= 70 {
			close = 230 - 4*(1-pow(0.8, i-69))
		}
		return models.Candle{Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 1000}
	})

	score := scoreCore(candles, config.Default())
	if score.Score <= 50 {
		t.Errorf("core score = %v, want > 50", score.Score)
	}
	if score.Signal != models.SignalBuy {
		t.Errorf("core signal = %v, want buy", score.Signal)
	}
}

func TestManagerSerializesPerSymbol(t *testing.T) {
	candles := generateTestCandles(60, func(i int) models.Candle {
		return models.Candle{Open: 100, High: 102, Low: 98, Close: 100 + float64(i%2), Volume: 1000}
	})

	m := NewManager(fastParams(), &stubSentiment{value: 0})
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		symbol := "BTCUSDT"
		if i%2 == 1 {
			symbol = "ETHUSDT"
		}
		go func(sym string) {
			_, err := m.Analyze(context.Background(), candles, sym)
			done <- err
		}(symbol)
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
		candles[i].Timestamp = int64(i) * 60_000
	}
	return candles
}
