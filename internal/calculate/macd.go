package calculate

// MACD computes the MACD line (fast EMA minus slow EMA), its signal line
// (EMA of the MACD-line history) and the histogram. The boolean is false
// when the series is shorter than slow+signal points.
func MACD(prices []float64, fast, slow, signal int) (macd, signalLine, histogram float64, ok bool) {
	if len(prices) < slow+signal {
		return 0, 0, 0, false
	}

	macd = EMA(prices, fast) - EMA(prices, slow)

	// Rebuild the MACD-line history over expanding windows so the signal
	// line sees the same values a streaming computation would have.
	history := make([]float64, 0, len(prices)-slow+1)
	for i := slow - 1; i < len(prices); i++ {
		window := prices[:i+1]
		history = append(history, EMA(window, fast)-EMA(window, slow))
	}

	signalLine = EMA(history, signal)
	histogram = macd - signalLine
	return macd, signalLine, histogram, true
}
