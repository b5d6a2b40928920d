package models

// Signal is the directional trading signal of a component or of the
// final aggregate.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Regime is one of the ten market-regime labels produced by the
// classifier. Classification is deterministic for identical input.
type Regime string

const (
	RegimeTrendingBullish Regime = "trending-bullish"
	RegimeTrendingBearish Regime = "trending-bearish"
	RegimeRanging         Regime = "ranging"
	RegimeVolatileBullish Regime = "volatile-bullish"
	RegimeVolatileBearish Regime = "volatile-bearish"
	RegimeCalm            Regime = "calm"
	RegimeBreakout        Regime = "breakout"
	RegimeBreakdown       Regime = "breakdown"
	RegimeAccumulation    Regime = "accumulation"
	RegimeDistribution    Regime = "distribution"
)

// Component names used as keys of AnalysisResult.Components.
const (
	ComponentRSIMACD   = "rsi_macd"
	ComponentSMC       = "smc"
	ComponentPatterns  = "patterns"
	ComponentSentiment = "sentiment"
	ComponentML        = "ml"
)
