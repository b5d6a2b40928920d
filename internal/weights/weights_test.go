package weights

import (
	"math"
	"testing"

	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

func TestAdaptInvariants(t *testing.T) {
	regimes := []models.Regime{
		models.RegimeTrendingBullish, models.RegimeTrendingBearish,
		models.RegimeRanging, models.RegimeVolatileBullish,
		models.RegimeVolatileBearish, models.RegimeCalm,
		models.RegimeBreakout, models.RegimeBreakdown,
		models.RegimeAccumulation, models.RegimeDistribution,
	}
	volatilities := []float64{0.5, 2, 4.5, 8}

	for _, r := range regimes {
		for _, vol := range volatilities {
			w := Adapt(r, vol)
			if math.Abs(w.Sum()-1.0) > 1e-6 {
				t.Errorf("regime %s vol %.1f: sum = %v, want 1", r, vol, w.Sum())
			}
			if w.RSIMACD < RSIMACDFloor-1e-9 || w.RSIMACD > RSIMACDCeiling+1e-9 {
				t.Errorf("regime %s vol %.1f: rsiMacd weight %v outside [0.30,0.50]", r, vol, w.RSIMACD)
			}
			for name, v := range map[string]float64{
				"smc": w.SMC, "patterns": w.Patterns,
				"sentiment": w.Sentiment, "ml": w.ML,
			} {
				if v < 0 || v > 1 {
					t.Errorf("regime %s vol %.1f: %s weight %v out of range", r, vol, name, v)
				}
			}
		}
	}
}

func TestAdaptTrendingBoostsCore(t *testing.T) {
	w := Adapt(models.RegimeTrendingBullish, 1.0)
	if w.RSIMACD <= BaseRSIMACD {
		t.Errorf("trending rsiMacd weight = %v, want > %v", w.RSIMACD, BaseRSIMACD)
	}
	if w.RSIMACD > RSIMACDCeiling {
		t.Errorf("trending rsiMacd weight = %v exceeds ceiling", w.RSIMACD)
	}
}

func TestAdaptRangingBoostsPatterns(t *testing.T) {
	for _, r := range []models.Regime{models.RegimeRanging, models.RegimeCalm} {
		w := Adapt(r, 1.0)
		if w.Patterns <= BasePatterns {
			t.Errorf("%s patterns weight = %v, want > %v", r, w.Patterns, BasePatterns)
		}
	}
}

func TestAdaptVolatileBoostsSentiment(t *testing.T) {
	w := Adapt(models.RegimeVolatileBullish, 6.0)
	if w.Sentiment <= BaseSentiment {
		t.Errorf("volatile sentiment weight = %v, want > %v", w.Sentiment, BaseSentiment)
	}
	if w.ML <= BaseML {
		t.Errorf("ml weight should be boosted above 4%% volatility, got %v", w.ML)
	}
}

func TestAdaptNeutralRegimesKeepBase(t *testing.T) {
	w := Adapt(models.RegimeAccumulation, 1.0)
	base := Base()
	if math.Abs(w.RSIMACD-base.RSIMACD) > 1e-9 || math.Abs(w.Patterns-base.Patterns) > 1e-9 {
		t.Errorf("accumulation should keep base weights, got %+v", w)
	}
}

func TestAdaptNotCumulative(t *testing.T) {
	first := Adapt(models.RegimeTrendingBullish, 1.0)
	for i := 0; i < 10; i++ {
		again := Adapt(models.RegimeTrendingBullish, 1.0)
		if again != first {
			t.Fatalf("adaptation must restart from base each call: %+v vs %+v", again, first)
		}
	}
}

func TestRedistribute(t *testing.T) {
	tests := []struct {
		name string
		in   models.WeightSet
		want float64 // expected rsiMacd after clamping
	}{
		{
			name: "below floor gets lifted",
			in:   models.WeightSet{RSIMACD: 0.20, SMC: 0.35, Patterns: 0.25, Sentiment: 0.12, ML: 0.08},
			want: 0.30,
		},
		{
			name: "above ceiling gets cut",
			in:   models.WeightSet{RSIMACD: 0.60, SMC: 0.15, Patterns: 0.12, Sentiment: 0.08, ML: 0.05},
			want: 0.50,
		},
		{
			name: "inside bounds untouched",
			in:   models.WeightSet{RSIMACD: 0.40, SMC: 0.25, Patterns: 0.20, Sentiment: 0.10, ML: 0.05},
			want: 0.40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Redistribute(tt.in, RSIMACDFloor, RSIMACDCeiling)
			if math.Abs(out.RSIMACD-tt.want) > 1e-9 {
				t.Errorf("rsiMacd = %v, want %v", out.RSIMACD, tt.want)
			}
			if math.Abs(out.Sum()-1.0) > 1e-6 {
				t.Errorf("sum = %v, want 1", out.Sum())
			}

			// Relative ratios among the other four must be preserved.
			inRest := tt.in.SMC + tt.in.Patterns + tt.in.Sentiment + tt.in.ML
			outRest := out.SMC + out.Patterns + out.Sentiment + out.ML
			if inRest > 0 && outRest > 0 {
				if math.Abs(tt.in.SMC/inRest-out.SMC/outRest) > 1e-9 {
					t.Errorf("smc ratio changed: %v vs %v", tt.in.SMC/inRest, out.SMC/outRest)
				}
			}
		})
	}
}
