package smc

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// OrderBlock is a candle with unusually high volume, treated as a zone of
// prior large-participant activity.
type OrderBlock struct {
	Index   int     `json:"index"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Volume  float64 `json:"volume"`
	Bullish bool    `json:"bullish"`
}

// ZoneKind marks a liquidity zone as support or resistance.
type ZoneKind string

const (
	ZoneSupport    ZoneKind = "support"
	ZoneResistance ZoneKind = "resistance"
)

// LiquidityZone is a recurring support/resistance level derived from
// trailing highs and lows. Strength counts how many recent closes sat
// within proximity of the level.
type LiquidityZone struct {
	Level    float64  `json:"level"`
	Kind     ZoneKind `json:"kind"`
	Strength int      `json:"strength"`
}

// BreakerBlock is a former level price has decisively broken through.
type BreakerBlock struct {
	Index   int     `json:"index"`
	Level   float64 `json:"level"`
	Bullish bool    `json:"bullish"`
}

// Structure is the full smart-money view of a candle series.
type Structure struct {
	OrderBlocks    []OrderBlock    `json:"order_blocks"`
	LiquidityZones []LiquidityZone `json:"liquidity_zones"`
	BreakerBlocks  []BreakerBlock  `json:"breaker_blocks"`
}

// Analyzer detects order blocks, liquidity zones and breaker blocks and
// scores the current price against them.
type Analyzer struct {
	params *config.Params
	logger zerolog.Logger
}

func NewAnalyzer(params *config.Params) *Analyzer {
	return &Analyzer{
		params: params,
		logger: log.With().Str("component", "smc").Logger(),
	}
}

// Analyze builds the structural view of the series. Candles must already
// be filtered for OHLC sanity.
func (a *Analyzer) Analyze(candles []models.Candle) *Structure {
	return &Structure{
		OrderBlocks:    a.findOrderBlocks(candles),
		LiquidityZones: a.findLiquidityZones(candles),
		BreakerBlocks:  a.findBreakerBlocks(candles),
	}
}

// Score maps the current price against the structure into a component
// score: neutral 50, pushed toward buy near supported zones and toward
// sell near resistance, strongest when price also sits inside an order
// block range.
func (a *Analyzer) Score(candles []models.Candle) models.ComponentScore {
	if len(candles) == 0 {
		return models.NeutralScore()
	}

	structure := a.Analyze(candles)
	price := candles[len(candles)-1].Close

	inOrderBlock := false
	for _, ob := range structure.OrderBlocks {
		if price >= ob.Low && price <= ob.High {
			inOrderBlock = true
			break
		}
	}

	nearSupport := false
	nearResistance := false
	proximity := a.params.SMC.ZoneProximityPct / 100.0
	for _, zone := range structure.LiquidityZones {
		if zone.Level <= 0 {
			continue
		}
		if math.Abs(price-zone.Level)/zone.Level <= proximity {
			switch zone.Kind {
			case ZoneSupport:
				nearSupport = true
			case ZoneResistance:
				nearResistance = true
			}
		}
	}

	score := 50.0
	var detail []string
	switch {
	case inOrderBlock && nearSupport:
		score = 75
		detail = append(detail, "price inside order block at support")
	case inOrderBlock && nearResistance:
		score = 25
		detail = append(detail, "price inside order block at resistance")
	case nearSupport:
		score = 65
		detail = append(detail, "price near support zone")
	case nearResistance:
		score = 35
		detail = append(detail, "price near resistance zone")
	}

	signal := models.SignalHold
	if score > 55 {
		signal = models.SignalBuy
	} else if score < 45 {
		signal = models.SignalSell
	}

	a.logger.Debug().
		Float64("score", score).
		Int("order_blocks", len(structure.OrderBlocks)).
		Int("zones", len(structure.LiquidityZones)).
		Int("breakers", len(structure.BreakerBlocks)).
		Msg("structure scored")

	return models.ComponentScore{
		Score:      score,
		Signal:     signal,
		Confidence: math.Abs(score-50) * 2,
		Detail:     detail,
	}
}

// findOrderBlocks keeps the most recent candles whose volume exceeds the
// configured multiple of the series mean volume.
func (a *Analyzer) findOrderBlocks(candles []models.Candle) []OrderBlock {
	if len(candles) == 0 {
		return nil
	}

	var totalVolume float64
	for _, c := range candles {
		totalVolume += c.Volume
	}
	meanVolume := totalVolume / float64(len(candles))
	if meanVolume == 0 {
		return nil
	}
	threshold := meanVolume * a.params.SMC.VolumeFactor

	var blocks []OrderBlock
	for i, c := range candles {
		if c.Volume > threshold {
			blocks = append(blocks, OrderBlock{
				Index:   i,
				High:    c.High,
				Low:     c.Low,
				Volume:  c.Volume,
				Bullish: c.Close > c.Open,
			})
		}
	}

	if len(blocks) > a.params.SMC.MaxOrderBlocks {
		blocks = blocks[len(blocks)-a.params.SMC.MaxOrderBlocks:]
	}
	return blocks
}

// findLiquidityZones scans trailing windows for recurring extreme levels.
// A resistance zone is emitted at the window max-high when the close sits
// below 98% of it, a support zone at the window min-low when the close
// sits above 102% of it. Zones are deduplicated by rounded level and the
// highest-strength ones win.
func (a *Analyzer) findLiquidityZones(candles []models.Candle) []LiquidityZone {
	window := a.params.SMC.ZoneWindow
	if len(candles) <= window {
		return nil
	}
	proximity := a.params.SMC.ZoneProximityPct / 100.0

	byLevel := make(map[string]LiquidityZone)
	for i := window; i < len(candles); i++ {
		maxHigh := candles[i-window].High
		minLow := candles[i-window].Low
		for j := i - window; j < i; j++ {
			if candles[j].High > maxHigh {
				maxHigh = candles[j].High
			}
			if candles[j].Low < minLow {
				minLow = candles[j].Low
			}
		}

		close := candles[i].Close
		if close < maxHigh*0.98 {
			zone := LiquidityZone{
				Level:    maxHigh,
				Kind:     ZoneResistance,
				Strength: countTouches(candles[i-window:i], maxHigh, proximity),
			}
			keep(byLevel, zone)
		}
		if close > minLow*1.02 {
			zone := LiquidityZone{
				Level:    minLow,
				Kind:     ZoneSupport,
				Strength: countTouches(candles[i-window:i], minLow, proximity),
			}
			keep(byLevel, zone)
		}
	}

	zones := make([]LiquidityZone, 0, len(byLevel))
	for _, z := range byLevel {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Strength != zones[j].Strength {
			return zones[i].Strength > zones[j].Strength
		}
		return zones[i].Level < zones[j].Level
	})
	if len(zones) > a.params.SMC.MaxZones {
		zones = zones[:a.params.SMC.MaxZones]
	}
	return zones
}

// findBreakerBlocks emits a bullish breaker when a close exceeds the
// prior-window max close by more than the configured percentage, and a
// bearish breaker for the mirrored break below the prior min close.
func (a *Analyzer) findBreakerBlocks(candles []models.Candle) []BreakerBlock {
	window := a.params.SMC.BreakerWindow
	if len(candles) <= window {
		return nil
	}
	breakFactor := a.params.SMC.BreakerPct / 100.0

	var breakers []BreakerBlock
	for i := window; i < len(candles); i++ {
		maxClose := candles[i-window].Close
		minClose := candles[i-window].Close
		for j := i - window; j < i; j++ {
			if candles[j].Close > maxClose {
				maxClose = candles[j].Close
			}
			if candles[j].Close < minClose {
				minClose = candles[j].Close
			}
		}

		if candles[i].Close > maxClose*(1+breakFactor) {
			breakers = append(breakers, BreakerBlock{Index: i, Level: maxClose, Bullish: true})
		} else if candles[i].Close < minClose*(1-breakFactor) {
			breakers = append(breakers, BreakerBlock{Index: i, Level: minClose, Bullish: false})
		}
	}

	if len(breakers) > a.params.SMC.MaxBreakers {
		breakers = breakers[len(breakers)-a.params.SMC.MaxBreakers:]
	}
	return breakers
}

func countTouches(candles []models.Candle, level, proximity float64) int {
	if level <= 0 {
		return 0
	}
	count := 0
	for _, c := range candles {
		if math.Abs(c.Close-level)/level <= proximity {
			count++
		}
	}
	return count
}

func keep(byLevel map[string]LiquidityZone, zone LiquidityZone) {
	key := fmt.Sprintf("%.2f", zone.Level)
	if existing, ok := byLevel[key]; !ok || zone.Strength > existing.Strength {
		byLevel[key] = zone
	}
}
