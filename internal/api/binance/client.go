package binance

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platform "github.com/nimazasinich/crypto-dt-source-sub011/internal/platform/http"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// Client fetches spot-market klines from the Binance REST API. It
// implements models.CandleSource.
type Client struct {
	baseURL    string
	httpClient *platform.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Binance client.
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      uint64
	MaxRetryTimeout time.Duration
}

// NewClient creates a new Binance API client.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.binance.com"
	}

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: platform.NewClient(platform.ClientOptions{
			Timeout:         opts.RequestTimeout,
			RequestsPerSec:  opts.RequestsPerSec,
			MaxRetries:      opts.MaxRetries,
			MaxRetryTimeout: opts.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "binance_client").Logger(),
	}
}

// GetCandles fetches up to limit klines for symbol at the given interval,
// returned ascending by open time.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())
	c.logger.Debug().Str("symbol", symbol).Str("interval", interval).Int("limit", limit).Msg("Fetching klines")

	// Klines come back as positional arrays, not objects.
	var raw [][]any
	if err := c.httpClient.GetJSON(ctx, endpoint, &raw); err != nil {
		c.logger.Error().Err(err).Str("symbol", symbol).Msg("Klines request failed")
		return nil, fmt.Errorf("fetching klines: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty klines response for %s", symbol)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("malformed kline entry: %v", k)
		}
		openTime, ok := k[0].(float64)
		if !ok {
			return nil, fmt.Errorf("malformed kline open time: %v", k[0])
		}
		candle := models.Candle{
			Timestamp: int64(openTime),
			Open:      parseField(k[1]),
			High:      parseField(k[2]),
			Low:       parseField(k[3]),
			Close:     parseField(k[4]),
			Volume:    parseField(k[5]),
		}
		candles = append(candles, candle)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

// parseField handles Binance returning prices as quoted strings.
func parseField(v any) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return t
	default:
		return 0
	}
}
