package patterns

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/calculate"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Direction tags a detected pattern.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Pattern is one detected chart or candlestick formation. Confidence is
// a fixed per-pattern value in the 55-70 band.
type Pattern struct {
	Name       string    `json:"name"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}

// Recognizer runs the four independent detectors over the tail of a
// candle series. Invalid candles are dropped up front so a malformed
// candle can never crash a detector.
type Recognizer struct {
	logger zerolog.Logger
}

func NewRecognizer() *Recognizer {
	return &Recognizer{logger: log.With().Str("component", "patterns").Logger()}
}

// Detect returns every pattern found in the last 10-20 candles.
func (r *Recognizer) Detect(candles []models.Candle) []Pattern {
	valid := models.FilterValid(candles)

	var found []Pattern
	if p, ok := detectHeadAndShoulders(valid); ok {
		found = append(found, p)
	}
	if p, ok := detectDoubleTopBottom(valid); ok {
		found = append(found, p)
	}
	if p, ok := detectTriangle(valid); ok {
		found = append(found, p)
	}
	found = append(found, detectCandlestick(valid)...)
	return found
}

// Score aggregates detected patterns into a component score:
// 50 + 10 per net bullish pattern, clamped to [0,100].
func (r *Recognizer) Score(candles []models.Candle) models.ComponentScore {
	found := r.Detect(candles)

	bullish, bearish := 0, 0
	var detail []string
	var confidenceSum float64
	for _, p := range found {
		if p.Direction == Bullish {
			bullish++
		} else {
			bearish++
		}
		confidenceSum += p.Confidence
		detail = append(detail, p.Name)
	}

	score := calculate.Clamp(50+10*float64(bullish-bearish), 0, 100)

	signal := models.SignalHold
	if bullish > bearish {
		signal = models.SignalBuy
	} else if bearish > bullish {
		signal = models.SignalSell
	}

	confidence := 0.0
	if len(found) > 0 {
		confidence = confidenceSum / float64(len(found))
	}

	r.logger.Debug().
		Int("bullish", bullish).
		Int("bearish", bearish).
		Float64("score", score).
		Msg("patterns scored")

	return models.ComponentScore{
		Score:      score,
		Signal:     signal,
		Confidence: confidence,
		Detail:     detail,
	}
}

// detectHeadAndShoulders looks for a dominant peak inside a 20-candle
// window whose flanking segments top out at least 2% lower.
func detectHeadAndShoulders(candles []models.Candle) (Pattern, bool) {
	if len(candles) < 20 {
		return Pattern{}, false
	}
	window := candles[len(candles)-20:]

	peakIdx := 0
	for i := 1; i < len(window); i++ {
		if window[i].High > window[peakIdx].High {
			peakIdx = i
		}
	}
	// The head must sit in the middle of the window, leaving room for
	// both shoulders.
	if peakIdx < 5 || peakIdx >= 15 {
		return Pattern{}, false
	}

	leftShoulder := maxHigh(window[:peakIdx-1])
	rightShoulder := maxHigh(window[peakIdx+2:])
	head := window[peakIdx].High

	if head > leftShoulder*1.02 && head > rightShoulder*1.02 {
		return Pattern{Name: "head-and-shoulders", Direction: Bearish, Confidence: 65}, true
	}
	return Pattern{}, false
}

// detectDoubleTopBottom splits the last 15 candles into two halves and
// compares their extremes: matching tops within 2% form a double top,
// matching bottoms a double bottom.
func detectDoubleTopBottom(candles []models.Candle) (Pattern, bool) {
	if len(candles) < 15 {
		return Pattern{}, false
	}
	window := candles[len(candles)-15:]
	first, second := window[:7], window[8:]

	firstHigh, secondHigh := maxHigh(first), maxHigh(second)
	if firstHigh > 0 && math.Abs(firstHigh-secondHigh)/firstHigh < 0.02 {
		return Pattern{Name: "double-top", Direction: Bearish, Confidence: 60}, true
	}

	firstLow, secondLow := minLow(first), minLow(second)
	if firstLow > 0 && math.Abs(firstLow-secondLow)/firstLow < 0.02 {
		return Pattern{Name: "double-bottom", Direction: Bullish, Confidence: 60}, true
	}
	return Pattern{}, false
}

// detectTriangle fits linear trends through the last 10 highs and lows.
// Flat-or-rising highs over rising lows form an ascending triangle,
// falling highs over flat-or-falling lows a descending one.
func detectTriangle(candles []models.Candle) (Pattern, bool) {
	if len(candles) < 10 {
		return Pattern{}, false
	}
	window := candles[len(candles)-10:]

	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, c := range window {
		highs[i] = c.High
		lows[i] = c.Low
	}

	avg := calculate.Average(lows)
	if avg == 0 {
		return Pattern{}, false
	}
	highSlope, _ := calculate.LinearRegression(highs)
	lowSlope, _ := calculate.LinearRegression(lows)
	// Normalize so the dead-band works across price scales.
	highSlope /= avg
	lowSlope /= avg

	const flat = 0.0005
	if highSlope > -flat && lowSlope > flat {
		return Pattern{Name: "ascending-triangle", Direction: Bullish, Confidence: 55}, true
	}
	if highSlope < -flat && lowSlope < flat {
		return Pattern{Name: "descending-triangle", Direction: Bearish, Confidence: 55}, true
	}
	return Pattern{}, false
}

// detectCandlestick checks the most recent candles for hammer,
// shooting-star and engulfing formations.
func detectCandlestick(candles []models.Candle) []Pattern {
	if len(candles) < 2 {
		return nil
	}

	var found []Pattern
	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	body := math.Abs(last.Close - last.Open)
	upperShadow := last.High - math.Max(last.Open, last.Close)
	lowerShadow := math.Min(last.Open, last.Close) - last.Low

	if body > 0 {
		if lowerShadow >= body*2 && upperShadow <= body*0.5 {
			found = append(found, Pattern{Name: "hammer", Direction: Bullish, Confidence: 60})
		}
		if upperShadow >= body*2 && lowerShadow <= body*0.5 {
			found = append(found, Pattern{Name: "shooting-star", Direction: Bearish, Confidence: 60})
		}
	}

	prevBullish := prev.Close > prev.Open
	lastBullish := last.Close > last.Open

	if lastBullish && !prevBullish && last.Open <= prev.Close && last.Close >= prev.Open {
		found = append(found, Pattern{Name: "bullish-engulfing", Direction: Bullish, Confidence: 70})
	}
	if !lastBullish && prevBullish && last.Open >= prev.Close && last.Close <= prev.Open {
		found = append(found, Pattern{Name: "bearish-engulfing", Direction: Bearish, Confidence: 70})
	}
	return found
}

func maxHigh(candles []models.Candle) float64 {
	max := 0.0
	for _, c := range candles {
		if c.High > max {
			max = c.High
		}
	}
	return max
}

func minLow(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	min := candles[0].Low
	for _, c := range candles {
		if c.Low < min {
			min = c.Low
		}
	}
	return min
}
