package models

import (
	"math"
	"time"
)

// Candle represents a single OHLCV price candle. Timestamp is unix
// milliseconds. Candles are immutable once produced by a data source.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Valid reports whether the candle satisfies basic OHLC sanity:
// no NaN/Inf fields, positive prices, low <= min(open,close) and
// max(open,close) <= high.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 || c.Volume < 0 {
		return false
	}
	body := math.Min(c.Open, c.Close)
	top := math.Max(c.Open, c.Close)
	return c.Low <= body && top <= c.High
}

// FilterValid returns a new slice containing only candles that pass Valid.
// The input is never mutated.
func FilterValid(candles []Candle) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

// Closes extracts the close series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// ComponentScore is the output of a single scoring component.
// Score and Confidence are in [0,100].
type ComponentScore struct {
	Score      float64  `json:"score"`
	Signal     Signal   `json:"signal"`
	Confidence float64  `json:"confidence"`
	Detail     []string `json:"detail,omitempty"`
}

// NeutralScore is what a component reports when it has nothing to say.
func NeutralScore() ComponentScore {
	return ComponentScore{Score: 50, Signal: SignalHold, Confidence: 0}
}

// WeightedComponent pairs a component score with its ensemble weight.
type WeightedComponent struct {
	ComponentScore
	Weight float64 `json:"weight"`
}

// WeightSet holds the five ensemble weights. After adaptation the sum is
// 1.0 ± 1e-6 and RSIMACD stays inside [0.30, 0.50].
type WeightSet struct {
	RSIMACD   float64 `json:"rsi_macd"`
	SMC       float64 `json:"smc"`
	Patterns  float64 `json:"patterns"`
	Sentiment float64 `json:"sentiment"`
	ML        float64 `json:"ml"`
}

// Sum returns the total of all five weights.
func (w WeightSet) Sum() float64 {
	return w.RSIMACD + w.SMC + w.Patterns + w.Sentiment + w.ML
}

// TakeProfitLevel is one rung of the take-profit ladder.
type TakeProfitLevel struct {
	Level      float64 `json:"level"`
	Type       string  `json:"type"` // TP1, TP2, TP3
	RiskReward float64 `json:"risk_reward"`
}

// RegimeTransition describes a change between two consecutive regime
// classifications on the same instrument stream.
type RegimeTransition struct {
	From         Regime `json:"from"`
	To           Regime `json:"to"`
	Significance string `json:"significance"` // high, medium
}

// Subscription registers a Telegram chat for signals on one symbol.
// Signals below MinConfidence are not delivered.
type Subscription struct {
	ChatID        int64     `json:"chat_id"`
	Symbol        string    `json:"symbol"`
	Interval      string    `json:"interval"`
	MinConfidence float64   `json:"min_confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// AnalysisResult is the full output of one Engine.Analyze call. It is
// created once per call and is fully JSON-serializable.
type AnalysisResult struct {
	ID               string                       `json:"id"`
	Symbol           string                       `json:"symbol"`
	FinalScore       float64                      `json:"final_score"`
	FinalSignal      Signal                       `json:"final_signal"`
	Confidence       float64                      `json:"confidence"`
	CurrentPrice     float64                      `json:"current_price"`
	StopLoss         float64                      `json:"stop_loss"`
	TakeProfitLevels []TakeProfitLevel            `json:"take_profit_levels"`
	Components       map[string]WeightedComponent `json:"components"`
	Regime           Regime                       `json:"regime"`
	RegimeConfidence float64                      `json:"regime_confidence"`
	Transition       *RegimeTransition            `json:"transition,omitempty"`
	GeneratedAt      time.Time                    `json:"generated_at"`
}
