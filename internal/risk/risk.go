package risk

import (
	"fmt"
	"math"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/calculate"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Calculator derives a stop-loss and a tiered take-profit ladder from
// the current price and the ATR.
type Calculator struct {
	params *config.Params
}

func NewCalculator(params *config.Params) *Calculator {
	return &Calculator{params: params}
}

// Levels computes the stop and the TP1/TP2/TP3 ladder for the signal
// direction. A hold signal gets the buy-side geometry so the caller
// always has levels to render. Risk-reward is each target's distance
// relative to the stop distance.
func (c *Calculator) Levels(candles []models.Candle, signal models.Signal) (stopLoss float64, targets []models.TakeProfitLevel) {
	price := candles[len(candles)-1].Close
	atr := calculate.ATR(candles, c.params.Indicators.ATRPeriod)
	if atr == 0 {
		// Degenerate series; fall back to a fraction of price so the
		// levels stay ordered.
		atr = price * 0.005
	}

	direction := 1.0
	if signal == models.SignalSell {
		direction = -1
	}

	stopDistance := c.params.Risk.StopATRMultiple * atr
	stopLoss = price - direction*stopDistance

	targets = make([]models.TakeProfitLevel, 0, len(c.params.Risk.TPATRMultiples))
	for i, multiple := range c.params.Risk.TPATRMultiples {
		distance := multiple * atr
		targets = append(targets, models.TakeProfitLevel{
			Level:      price + direction*distance,
			Type:       fmt.Sprintf("TP%d", i+1),
			RiskReward: round2(distance / stopDistance),
		})
	}
	return stopLoss, targets
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
