package feargreed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platform "github.com/nimazasinich/crypto-dt-source-sub011/internal/platform/http"
)

// Client reads the crypto Fear & Greed index from alternative.me and
// maps it onto the [-1, 1] sentiment scale. It implements
// models.SentimentProvider; the index is market-wide, so the symbol
// argument is ignored.
type Client struct {
	baseURL    string
	httpClient *platform.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Fear & Greed client.
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      uint64
	MaxRetryTimeout time.Duration
}

type indexResponse struct {
	Name string `json:"name"`
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
}

// NewClient creates a new Fear & Greed index client.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.alternative.me"
	}

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: platform.NewClient(platform.ClientOptions{
			Timeout:         opts.RequestTimeout,
			RequestsPerSec:  opts.RequestsPerSec,
			MaxRetries:      opts.MaxRetries,
			MaxRetryTimeout: opts.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "feargreed_client").Logger(),
	}
}

// GetSentiment fetches the latest index value. 0 (extreme fear) maps to
// -1, 50 to 0 and 100 (extreme greed) to +1.
func (c *Client) GetSentiment(ctx context.Context, symbol string) (float64, error) {
	var resp indexResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/fng/?limit=1", &resp); err != nil {
		c.logger.Error().Err(err).Msg("Fear & Greed request failed")
		return 0, fmt.Errorf("fetching fear & greed index: %w", err)
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("empty fear & greed response")
	}

	value, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing index value %q: %w", resp.Data[0].Value, err)
	}

	sentiment := (value - 50) / 50
	if sentiment > 1 {
		sentiment = 1
	} else if sentiment < -1 {
		sentiment = -1
	}

	c.logger.Debug().
		Float64("index", value).
		Str("classification", resp.Data[0].ValueClassification).
		Float64("sentiment", sentiment).
		Msg("Fetched fear & greed index")
	return sentiment, nil
}
