package ensemble

import (
	"math"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/calculate"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Fixed feature weights of the heuristic blend. This is a documented
// deterministic function, not a learned model; the weights sum to 1 and
// were chosen to lean on the indicator core while still reacting to
// short-horizon volume and momentum shifts.
const (
	wCore        = 0.30
	wSMC         = 0.25
	wPatterns    = 0.20
	wSentiment   = 0.10
	wVolumeTrend = 0.075
	wMomentum    = 0.075
)

// Inputs are the other four component scores plus the raw candles the
// short-horizon features are read from.
type Inputs struct {
	Core      models.ComponentScore
	SMC       models.ComponentScore
	Patterns  models.ComponentScore
	Sentiment models.ComponentScore
	Candles   []models.Candle
}

// Score blends the normalized strength of the other components with a
// volume-trend and price-momentum reading into the fifth component
// score. Signal thresholds sit at 55/45.
func Score(in Inputs) models.ComponentScore {
	blend := wCore*signedStrength(in.Core) +
		wSMC*signedStrength(in.SMC) +
		wPatterns*signedStrength(in.Patterns) +
		wSentiment*signedStrength(in.Sentiment) +
		wVolumeTrend*volumeTrend(in.Candles) +
		wMomentum*priceMomentum(in.Candles)

	score := calculate.Clamp(50+50*blend, 0, 100)

	signal := models.SignalHold
	if score > 55 {
		signal = models.SignalBuy
	} else if score < 45 {
		signal = models.SignalSell
	}

	return models.ComponentScore{
		Score:      score,
		Signal:     signal,
		Confidence: math.Abs(score-50) * 2,
	}
}

// signedStrength maps a component score onto [-1,1]: distance from the
// 50 midline, signed by which side it sits on.
func signedStrength(c models.ComponentScore) float64 {
	return (c.Score - 50) / 50
}

// volumeTrend compares the mean volume of the last 5 candles against
// the 5 before them, scaled into [-1,1].
func volumeTrend(candles []models.Candle) float64 {
	if len(candles) < 10 {
		return 0
	}
	recent := meanVolume(candles[len(candles)-5:])
	prior := meanVolume(candles[len(candles)-10 : len(candles)-5])
	if prior == 0 {
		return 0
	}
	return calculate.Clamp(recent/prior-1, -1, 1)
}

// priceMomentum is the 5-candle percentage change, scaled so a 5% move
// saturates the feature.
func priceMomentum(candles []models.Candle) float64 {
	if len(candles) < 6 {
		return 0
	}
	ref := candles[len(candles)-6].Close
	if ref == 0 {
		return 0
	}
	change := (candles[len(candles)-1].Close - ref) / ref
	return calculate.Clamp(change/0.05, -1, 1)
}

func meanVolume(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candles {
		sum += c.Volume
	}
	return sum / float64(len(candles))
}
