package weights

import (
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Base ensemble weights before any regime adaptation.
const (
	BaseRSIMACD   = 0.40
	BaseSMC       = 0.25
	BasePatterns  = 0.20
	BaseSentiment = 0.10
	BaseML        = 0.05

	// Hard bound on the momentum-core weight, enforced after every
	// adaptation.
	RSIMACDFloor   = 0.30
	RSIMACDCeiling = 0.50

	// ML weight boost kicks in above this volatility.
	mlVolatilityPct = 4.0
)

// Base returns the unadapted weight set.
func Base() models.WeightSet {
	return models.WeightSet{
		RSIMACD:   BaseRSIMACD,
		SMC:       BaseSMC,
		Patterns:  BasePatterns,
		Sentiment: BaseSentiment,
		ML:        BaseML,
	}
}

// Adapt applies regime-conditioned multiplicative adjustments to the
// base weights (never cumulative across calls), renormalizes to sum 1
// and enforces the momentum-core hard bound with proportional
// redistribution. volatilityPct is the classifier's volatility reading.
func Adapt(regime models.Regime, volatilityPct float64) models.WeightSet {
	w := Base()

	switch regimeClass(regime) {
	case classTrending:
		w.RSIMACD = min(w.RSIMACD*1.15, 0.50)
		w.SMC = min(w.SMC*1.20, 0.30)
		w.Patterns *= 0.90
		w.Sentiment *= 0.85
	case classRanging:
		w.RSIMACD = max(w.RSIMACD*0.85, 0.30)
		w.SMC *= 1.10
		w.Patterns = min(w.Patterns*1.30, 0.30)
		w.Sentiment *= 0.90
	case classVolatile:
		w.RSIMACD = max(w.RSIMACD*0.90, 0.30)
		w.SMC = min(w.SMC*1.40, 0.35)
		w.Patterns *= 0.80
		w.Sentiment = min(w.Sentiment*2.00, 0.20)
	}

	if volatilityPct > mlVolatilityPct {
		w.ML = min(w.ML*1.5, 0.10)
	}

	w = normalize(w)
	return Redistribute(w, RSIMACDFloor, RSIMACDCeiling)
}

type class int

const (
	classOther class = iota
	classTrending
	classRanging
	classVolatile
)

// regimeClass folds the ten regime labels into the four adjustment rows.
// Breakout/breakdown behave like trends (momentum carries), calm like a
// range (mean reversion, pattern-friendly); accumulation/distribution
// keep the base weights.
func regimeClass(r models.Regime) class {
	switch r {
	case models.RegimeTrendingBullish, models.RegimeTrendingBearish,
		models.RegimeBreakout, models.RegimeBreakdown:
		return classTrending
	case models.RegimeRanging, models.RegimeCalm:
		return classRanging
	case models.RegimeVolatileBullish, models.RegimeVolatileBearish:
		return classVolatile
	default:
		return classOther
	}
}

// normalize scales all five weights so they sum to exactly 1.
func normalize(w models.WeightSet) models.WeightSet {
	sum := w.Sum()
	if sum == 0 {
		return Base()
	}
	w.RSIMACD /= sum
	w.SMC /= sum
	w.Patterns /= sum
	w.Sentiment /= sum
	w.ML /= sum
	return w
}

// Redistribute clamps the RSIMACD weight into [floor, ceiling] and
// spreads the delta proportionally across the remaining four weights so
// their relative ratios are preserved and the total stays 1. The input
// must already sum to 1.
func Redistribute(w models.WeightSet, floor, ceiling float64) models.WeightSet {
	clamped := w.RSIMACD
	if clamped < floor {
		clamped = floor
	} else if clamped > ceiling {
		clamped = ceiling
	}
	if clamped == w.RSIMACD {
		return w
	}

	rest := w.SMC + w.Patterns + w.Sentiment + w.ML
	target := 1 - clamped
	w.RSIMACD = clamped
	if rest <= 0 {
		// Degenerate input: give the remainder to structure analysis.
		w.SMC = target
		w.Patterns, w.Sentiment, w.ML = 0, 0, 0
		return w
	}

	scale := target / rest
	w.SMC *= scale
	w.Patterns *= scale
	w.Sentiment *= scale
	w.ML *= scale
	return w
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
