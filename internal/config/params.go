package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Params holds every empirically-tuned constant of the signal engine.
// The thresholds have no cited derivation, so they are kept configurable
// for calibration against historical data instead of being hard-coded.
type Params struct {
	Indicators struct {
		RSIPeriod        int `yaml:"rsi_period" default:"14" validate:"min=2"`
		MACDFastPeriod   int `yaml:"macd_fast_period" default:"12" validate:"min=2"`
		MACDSlowPeriod   int `yaml:"macd_slow_period" default:"26" validate:"min=3"`
		MACDSignalPeriod int `yaml:"macd_signal_period" default:"9" validate:"min=2"`
		EMAPeriod        int `yaml:"ema_period" default:"20" validate:"min=2"`
		ATRPeriod        int `yaml:"atr_period" default:"14" validate:"min=2"`
	} `yaml:"indicators"`

	Regime struct {
		VolatilityWindow  int     `yaml:"volatility_window" default:"20" validate:"min=5"`
		TrendWindow       int     `yaml:"trend_window" default:"50" validate:"min=10"`
		SwingWindow       int     `yaml:"swing_window" default:"20" validate:"min=5"`
		SwingStrength     int     `yaml:"swing_strength" default:"5" validate:"min=2"`
		DMPeriod          int     `yaml:"dm_period" default:"14" validate:"min=2"`
		MomentumPeriod    int     `yaml:"momentum_period" default:"10" validate:"min=2"`
		HighVolatilityPct float64 `yaml:"high_volatility_pct" default:"5.0" validate:"gt=0"`
		LowVolatilityPct  float64 `yaml:"low_volatility_pct" default:"2.0" validate:"gt=0"`
		BreakoutPosition  float64 `yaml:"breakout_position" default:"0.95" validate:"gt=0.5,lte=1"`
		TrendStrengthMin  float64 `yaml:"trend_strength_min" default:"40" validate:"gt=0"`
		TrendFitMin       float64 `yaml:"trend_fit_min" default:"60" validate:"gt=0"`
		TightRangePct     float64 `yaml:"tight_range_pct" default:"3.0" validate:"gt=0"`
		WideRangePct      float64 `yaml:"wide_range_pct" default:"10.0" validate:"gt=0"`
		SlopeDeadBand     float64 `yaml:"slope_dead_band" default:"0.001" validate:"gt=0"`

		WyckoffRangePct    float64 `yaml:"wyckoff_range_pct" default:"5.0" validate:"gt=0"`
		WyckoffVolumeRatio float64 `yaml:"wyckoff_volume_ratio" default:"1.2" validate:"gt=0"`
		WyckoffDriftPct    float64 `yaml:"wyckoff_drift_pct" default:"3.0" validate:"gt=0"`
		WyckoffMarkPct     float64 `yaml:"wyckoff_mark_pct" default:"5.0" validate:"gt=0"`
	} `yaml:"regime"`

	SMC struct {
		VolumeFactor     float64 `yaml:"volume_factor" default:"1.5" validate:"gt=1"`
		MaxOrderBlocks   int     `yaml:"max_order_blocks" default:"10" validate:"min=1"`
		ZoneWindow       int     `yaml:"zone_window" default:"20" validate:"min=5"`
		MaxZones         int     `yaml:"max_zones" default:"5" validate:"min=1"`
		ZoneProximityPct float64 `yaml:"zone_proximity_pct" default:"1.0" validate:"gt=0"`
		BreakerWindow    int     `yaml:"breaker_window" default:"10" validate:"min=3"`
		BreakerPct       float64 `yaml:"breaker_pct" default:"1.0" validate:"gt=0"`
		MaxBreakers      int     `yaml:"max_breakers" default:"5" validate:"min=1"`
	} `yaml:"smc"`

	Risk struct {
		StopATRMultiple float64   `yaml:"stop_atr_multiple" default:"2.0" validate:"gt=0"`
		TPATRMultiples  []float64 `yaml:"tp_atr_multiples" default:"[1.5,2.5,4.0]" validate:"min=1,dive,gt=0"`
	} `yaml:"risk"`

	Sentiment struct {
		MaxRetries     int     `yaml:"max_retries" default:"2" validate:"min=0"`
		MaxIntervalSec float64 `yaml:"max_interval_sec" default:"5" validate:"gt=0"`
		TimeoutSec     float64 `yaml:"timeout_sec" default:"10" validate:"gt=0"`
	} `yaml:"sentiment"`
}

// Default returns the parameter set with all defaults applied.
func Default() *Params {
	p := &Params{}
	if err := defaults.Set(p); err != nil {
		// Defaults are struct tags under our control; failing to apply
		// them is a programming error.
		panic(err)
	}
	return p
}

// LoadParams reads engine parameters from a YAML file, applies defaults
// for anything omitted and validates the result. An empty path returns
// the defaults.
func LoadParams(path string) (*Params, error) {
	p := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading params file: %w", err)
		}
		if err := yaml.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("parsing params file: %w", err)
		}
	}
	if err := validator.New().Struct(p); err != nil {
		return nil, fmt.Errorf("validating params: %w", err)
	}
	return p, nil
}
