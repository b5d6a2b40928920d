package analyze

import (
	"fmt"
	"math"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/calculate"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// scoreCore is the momentum-indicator component: RSI, MACD and the EMA
// trend filter combined by counting aligned bullish and bearish
// readings, then mapped onto the 0-100 score scale.
func scoreCore(candles []models.Candle, params *config.Params) models.ComponentScore {
	p := params.Indicators
	closes := models.Closes(candles)
	price := closes[len(closes)-1]

	net := 0
	var detail []string

	rsi, rsiOK := calculate.RSI(closes, p.RSIPeriod)
	if rsiOK {
		switch {
		case rsi < 30:
			net += 2
			detail = append(detail, fmt.Sprintf("RSI oversold at %.1f", rsi))
		case rsi < 40:
			net++
			detail = append(detail, fmt.Sprintf("RSI approaching oversold at %.1f", rsi))
		case rsi > 70:
			net -= 2
			detail = append(detail, fmt.Sprintf("RSI overbought at %.1f", rsi))
		case rsi > 60:
			net--
			detail = append(detail, fmt.Sprintf("RSI approaching overbought at %.1f", rsi))
		}
	}

	macd, _, hist, macdOK := calculate.MACD(closes, p.MACDFastPeriod, p.MACDSlowPeriod, p.MACDSignalPeriod)
	if macdOK {
		if hist > 0 {
			net++
			detail = append(detail, "positive MACD histogram")
			if macd > 0 {
				net++
				detail = append(detail, "MACD momentum aligned bullish")
			}
		} else if hist < 0 {
			net--
			detail = append(detail, "negative MACD histogram")
			if macd < 0 {
				net--
				detail = append(detail, "MACD momentum aligned bearish")
			}
		}
	}

	ema := calculate.EMA(closes, p.EMAPeriod)
	if price > ema {
		net++
		detail = append(detail, "price above EMA")
	} else if price < ema {
		net--
		detail = append(detail, "price below EMA")
	}

	score := calculate.Clamp(50+float64(net)*10, 0, 100)

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
		Detail:     detail,
	}
}
