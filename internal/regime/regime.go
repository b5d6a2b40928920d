package regime

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/calculate"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// TrendDirection is the sign of the fitted trend slope.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// MomentumState buckets the short-horizon percentage change.
type MomentumState string

const (
	MomentumStrongPositive MomentumState = "strong-positive"
	MomentumPositive       MomentumState = "positive"
	MomentumNeutral        MomentumState = "neutral"
	MomentumNegative       MomentumState = "negative"
	MomentumStrongNegative MomentumState = "strong-negative"
)

// VolumeState buckets the latest volume against its trailing average.
type VolumeState string

const (
	VolumeVeryHigh VolumeState = "very-high"
	VolumeHigh     VolumeState = "high"
	VolumeNormal   VolumeState = "normal"
	VolumeLow      VolumeState = "low"
	VolumeVeryLow  VolumeState = "very-low"
)

// WyckoffPhase is the market-cycle label inferred from range compression
// and volume behavior.
type WyckoffPhase string

const (
	PhaseAccumulation WyckoffPhase = "accumulation"
	PhaseMarkup       WyckoffPhase = "markup"
	PhaseDistribution WyckoffPhase = "distribution"
	PhaseMarkdown     WyckoffPhase = "markdown"
	PhaseNeutral      WyckoffPhase = "neutral"
)

// MarketStructure labels the relationship of recent swing highs/lows.
type MarketStructure string

const (
	StructureBullish      MarketStructure = "bullish"
	StructureBearish      MarketStructure = "bearish"
	StructureAccumulation MarketStructure = "accumulation"
	StructureDistribution MarketStructure = "distribution"
	StructureNeutral      MarketStructure = "neutral"
)

// Trend is the linear-regression view of the trend window.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Strength  float64        `json:"strength"` // R^2 * 100
}

// Range describes the trailing high/low band and where price sits in it.
type Range struct {
	SpreadPct float64 `json:"spread_pct"`
	Position  float64 `json:"position"` // [0,1]
	Tight     bool    `json:"tight"`
	Wide      bool    `json:"wide"`
}

// Features is everything the classifier reads out of the candle window.
type Features struct {
	VolatilityPct float64         `json:"volatility_pct"`
	Trend         Trend           `json:"trend"`
	TrendStrength float64         `json:"trend_strength"` // ADX-like, [0,100]
	Momentum      MomentumState   `json:"momentum"`
	MomentumPct   float64         `json:"momentum_pct"`
	Volume        VolumeState     `json:"volume"`
	VolumeRatio   float64         `json:"volume_ratio"`
	Range         Range           `json:"range"`
	Structure     MarketStructure `json:"structure"`
	Wyckoff       WyckoffPhase    `json:"wyckoff"`
}

// Classification is the classifier output for one candle window.
type Classification struct {
	Regime     models.Regime `json:"regime"`
	Confidence float64       `json:"confidence"`
	Features   Features      `json:"features"`
}

// Classifier turns a candle window into one of the ten regime labels.
// Classification is a pure function of the window; the only state the
// classifier carries is the bounded history used for transition
// detection, which callers drive through History explicitly.
type Classifier struct {
	params *config.Params
	logger zerolog.Logger
}

func NewClassifier(params *config.Params) *Classifier {
	return &Classifier{
		params: params,
		logger: log.With().Str("component", "regime").Logger(),
	}
}

// Classify computes the feature set and applies the priority rules.
// Identical input always yields an identical classification.
func (c *Classifier) Classify(candles []models.Candle) Classification {
	features := c.ComputeFeatures(candles)
	regime := c.pick(features)
	confidence := c.confidence(regime, features)

	c.logger.Debug().
		Str("regime", string(regime)).
		Float64("confidence", confidence).
		Float64("volatility_pct", features.VolatilityPct).
		Str("wyckoff", string(features.Wyckoff)).
		Msg("regime classified")

	return Classification{Regime: regime, Confidence: confidence, Features: features}
}

// ComputeFeatures reads volatility, trend, momentum, volume, range,
// structure and Wyckoff phase out of the window.
func (c *Classifier) ComputeFeatures(candles []models.Candle) Features {
	p := c.params.Regime
	closes := models.Closes(candles)

	return Features{
		VolatilityPct: volatilityPct(closes, p.VolatilityWindow),
		Trend:         c.trend(closes),
		TrendStrength: directionalStrength(candles, p.DMPeriod),
		Momentum:      bucketMomentum(momentumPct(closes, p.MomentumPeriod)),
		MomentumPct:   momentumPct(closes, p.MomentumPeriod),
		Volume:        bucketVolume(volumeRatio(candles, p.VolatilityWindow)),
		VolumeRatio:   volumeRatio(candles, p.VolatilityWindow),
		Range:         c.rangeFeature(candles),
		Structure:     c.marketStructure(candles),
		Wyckoff:       c.wyckoffPhase(candles),
	}
}

// pick applies the classification priority: Wyckoff phases first, then
// volatility regimes, then breakout/breakdown, then trends, then calm,
// and ranging as the default. Never returns "unknown".
func (c *Classifier) pick(f Features) models.Regime {
	p := c.params.Regime

	switch f.Wyckoff {
	case PhaseAccumulation:
		return models.RegimeAccumulation
	case PhaseDistribution:
		return models.RegimeDistribution
	}

	if f.VolatilityPct > p.HighVolatilityPct {
		switch f.Trend.Direction {
		case TrendUp:
			return models.RegimeVolatileBullish
		case TrendDown:
			return models.RegimeVolatileBearish
		}
	}

	highVolume := f.Volume == VolumeHigh || f.Volume == VolumeVeryHigh
	positiveMomentum := f.Momentum == MomentumPositive || f.Momentum == MomentumStrongPositive
	negativeMomentum := f.Momentum == MomentumNegative || f.Momentum == MomentumStrongNegative

	if f.Range.Position > p.BreakoutPosition && highVolume && positiveMomentum {
		return models.RegimeBreakout
	}
	if f.Range.Position < 1-p.BreakoutPosition && highVolume && negativeMomentum {
		return models.RegimeBreakdown
	}

	if f.TrendStrength > p.TrendStrengthMin && f.Trend.Strength > p.TrendFitMin {
		switch f.Trend.Direction {
		case TrendUp:
			return models.RegimeTrendingBullish
		case TrendDown:
			return models.RegimeTrendingBearish
		}
	}

	if f.Range.Tight || f.VolatilityPct < p.LowVolatilityPct {
		return models.RegimeCalm
	}

	return models.RegimeRanging
}

// confidence blends trend metrics with regime-specific bonuses and
// clamps to [0,100].
func (c *Classifier) confidence(regime models.Regime, f Features) float64 {
	conf := 50 + 0.3*f.TrendStrength + 0.2*f.Trend.Strength

	if f.Volume == VolumeHigh || f.Volume == VolumeVeryHigh {
		conf += 10
	}
	if f.Range.Tight {
		conf += 5
	}

	switch regime {
	case models.RegimeTrendingBullish, models.RegimeTrendingBearish:
		if f.TrendStrength > 60 {
			conf += 15
		}
	case models.RegimeRanging, models.RegimeCalm:
		if f.VolatilityPct < c.params.Regime.LowVolatilityPct {
			conf += 10
		}
	case models.RegimeBreakout, models.RegimeBreakdown:
		if f.Volume == VolumeVeryHigh {
			conf += 20
		}
	}

	return calculate.Clamp(conf, 0, 100)
}

// volatilityPct is the standard deviation of 1-period returns over the
// window, in percent.
func volatilityPct(closes []float64, window int) float64 {
	if len(closes) < window+1 {
		return 0
	}
	tail := closes[len(closes)-window-1:]
	returns := make([]float64, 0, window)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			continue
		}
		returns = append(returns, (tail[i]-tail[i-1])/tail[i-1])
	}
	return calculate.StdDev(returns) * 100
}

func (c *Classifier) trend(closes []float64) Trend {
	window := c.params.Regime.TrendWindow
	if len(closes) < window {
		window = len(closes)
	}
	tail := closes[len(closes)-window:]

	slope, r2 := calculate.LinearRegression(tail)
	avg := calculate.Average(tail)
	if avg != 0 {
		slope /= avg // per-candle relative slope
	}

	direction := TrendNeutral
	if slope > c.params.Regime.SlopeDeadBand {
		direction = TrendUp
	} else if slope < -c.params.Regime.SlopeDeadBand {
		direction = TrendDown
	}
	return Trend{Direction: direction, Strength: r2 * 100}
}

// directionalStrength is an ADX-like reading: the net share of positive
// vs negative directional movement over the period, scaled to [0,100].
func directionalStrength(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}
	tail := candles[len(candles)-period-1:]

	var plusDM, minusDM float64
	for i := 1; i < len(tail); i++ {
		upMove := tail[i].High - tail[i-1].High
		downMove := tail[i-1].Low - tail[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM += downMove
		}
	}

	total := plusDM + minusDM
	if total == 0 {
		return 0
	}
	return math.Abs(plusDM-minusDM) / total * 100
}

func momentumPct(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 0
	}
	ref := closes[len(closes)-period-1]
	if ref == 0 {
		return 0
	}
	return (closes[len(closes)-1] - ref) / ref * 100
}

func bucketMomentum(pct float64) MomentumState {
	switch {
	case pct > 2:
		return MomentumStrongPositive
	case pct > 0.5:
		return MomentumPositive
	case pct < -2:
		return MomentumStrongNegative
	case pct < -0.5:
		return MomentumNegative
	default:
		return MomentumNeutral
	}
}

func volumeRatio(candles []models.Candle, window int) float64 {
	if len(candles) < window {
		return 1
	}
	tail := candles[len(candles)-window:]
	var sum float64
	for _, c := range tail {
		sum += c.Volume
	}
	avg := sum / float64(len(tail))
	if avg == 0 {
		return 1
	}
	return candles[len(candles)-1].Volume / avg
}

func bucketVolume(ratio float64) VolumeState {
	switch {
	case ratio > 2:
		return VolumeVeryHigh
	case ratio > 1.5:
		return VolumeHigh
	case ratio < 0.5:
		return VolumeVeryLow
	case ratio < 0.75:
		return VolumeLow
	default:
		return VolumeNormal
	}
}

func (c *Classifier) rangeFeature(candles []models.Candle) Range {
	window := c.params.Regime.SwingWindow
	if len(candles) < window {
		return Range{Position: 0.5}
	}
	tail := candles[len(candles)-window:]

	high := tail[0].High
	low := tail[0].Low
	var priceSum float64
	for _, c := range tail {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		priceSum += c.Close
	}
	avgPrice := priceSum / float64(len(tail))

	spreadPct := 0.0
	if avgPrice != 0 {
		spreadPct = (high - low) / avgPrice * 100
	}
	position := 0.5
	if high > low {
		position = (candles[len(candles)-1].Close - low) / (high - low)
	}

	return Range{
		SpreadPct: spreadPct,
		Position:  calculate.Clamp(position, 0, 1),
		Tight:     spreadPct < c.params.Regime.TightRangePct,
		Wide:      spreadPct > c.params.Regime.WideRangePct,
	}
}

// marketStructure compares the last two swing highs and the last two
// swing lows. Higher highs with higher lows are bullish, lower with
// lower bearish; the mixed combinations map to accumulation (holding
// lows, fading highs) and distribution (holding highs, sagging lows).
func (c *Classifier) marketStructure(candles []models.Candle) MarketStructure {
	strength := c.params.Regime.SwingStrength
	highs, lows := swingPoints(candles, strength)
	if len(highs) < 2 || len(lows) < 2 {
		return StructureNeutral
	}

	higherHigh := highs[len(highs)-1] > highs[len(highs)-2]
	higherLow := lows[len(lows)-1] > lows[len(lows)-2]

	switch {
	case higherHigh && higherLow:
		return StructureBullish
	case !higherHigh && !higherLow:
		return StructureBearish
	case higherLow:
		return StructureAccumulation
	default:
		return StructureDistribution
	}
}

// swingPoints finds local extremes: a candle whose high (low) is the
// maximum (minimum) within ±strength candles.
func swingPoints(candles []models.Candle, strength int) (highs, lows []float64) {
	for i := strength; i < len(candles)-strength; i++ {
		isHigh, isLow := true, true
		for j := i - strength; j <= i+strength; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}
	return highs, lows
}

// wyckoffPhase infers the market-cycle phase from range compression,
// volume expansion and the window price drift.
func (c *Classifier) wyckoffPhase(candles []models.Candle) WyckoffPhase {
	p := c.params.Regime
	window := p.SwingWindow
	if len(candles) < window {
		return PhaseNeutral
	}

	r := c.rangeFeature(candles)
	volRatio := volumeRatio(candles, window)

	first := candles[len(candles)-window].Close
	last := candles[len(candles)-1].Close
	changePct := 0.0
	if first != 0 {
		changePct = (last - first) / first * 100
	}

	switch {
	case changePct > p.WyckoffMarkPct && volRatio > 1:
		return PhaseMarkup
	case changePct < -p.WyckoffMarkPct && volRatio > 1:
		return PhaseMarkdown
	case r.SpreadPct < p.WyckoffRangePct && volRatio > p.WyckoffVolumeRatio && changePct < 0 && changePct > -p.WyckoffDriftPct:
		return PhaseDistribution
	case r.SpreadPct < p.WyckoffRangePct && volRatio > p.WyckoffVolumeRatio && math.Abs(changePct) < p.WyckoffDriftPct:
		return PhaseAccumulation
	default:
		return PhaseNeutral
	}
}
