package calculate

import (
	"math"

	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// ATR computes the Average True Range over the trailing `period` true
// ranges. Returns 0 when the series is shorter than period+1 candles.
func ATR(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}

	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)
		sum += math.Max(highLow, math.Max(highPrevClose, lowPrevClose))
	}
	return sum / float64(period)
}
