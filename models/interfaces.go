package models

import "context"

// CandleSource fetches OHLCV candles for a symbol, ascending by timestamp.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// SentimentProvider returns an external sentiment reading in [-1, 1]
// for a symbol. Implementations are expected to hit the network.
type SentimentProvider interface {
	GetSentiment(ctx context.Context, symbol string) (float64, error)
}

// SignalNotifier delivers a finished analysis to subscribed consumers.
type SignalNotifier interface {
	Notify(ctx context.Context, result *AnalysisResult) error
}
