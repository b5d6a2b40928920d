package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/analyze"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/cache"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

type stubSource struct {
	candles []models.Candle
	err     error
}

func (s *stubSource) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candles, nil
}

type stubSentiment struct{}

func (stubSentiment) GetSentiment(ctx context.Context, symbol string) (float64, error) {
	return 0.2, nil
}

func trendingCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	close := 100.0
	for i := 0; i < n; i++ {
		close *= 1.002
		candles[i] = models.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      close * 0.999,
			High:      close * 1.001,
			Low:       close * 0.998,
			Close:     close,
			Volume:    1000,
		}
	}
	return candles
}

func newTestServer(source models.CandleSource, signals *cache.SignalCache) *Server {
	p := config.Default()
	p.Sentiment.TimeoutSec = 0.2
	p.Sentiment.MaxIntervalSec = 0.01
	p.Sentiment.MaxRetries = 0
	manager := analyze.NewManager(p, stubSentiment{})
	handler := NewSignalHandler(manager, source, signals)
	return New(Config{}, handler, prometheus.NewRegistry())
}

func TestGetSignal(t *testing.T) {
	signals := cache.NewSignalCache(cache.NewMemoryStore(), time.Minute, time.Hour)
	srv := newTestServer(&stubSource{candles: trendingCandles(100)}, signals)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signal?symbol=BTCUSDT", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp signalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q", resp.Symbol)
	}
	if resp.Stale {
		t.Error("freshly computed signal must not be marked stale")
	}
	if resp.FinalScore < 0 || resp.FinalScore > 100 {
		t.Errorf("final score out of range: %v", resp.FinalScore)
	}
	if len(resp.Components) != 5 {
		t.Errorf("expected 5 components, got %d", len(resp.Components))
	}

	// The result must now be cached.
	if cached, fresh, err := signals.Get(context.Background(), "BTCUSDT"); err != nil || !fresh || cached == nil {
		t.Errorf("expected fresh cache entry after request: fresh=%v err=%v", fresh, err)
	}
}

func TestGetSignalMissingSymbol(t *testing.T) {
	signals := cache.NewSignalCache(cache.NewMemoryStore(), time.Minute, time.Hour)
	srv := newTestServer(&stubSource{candles: trendingCandles(100)}, signals)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signal", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetSignalInsufficientData(t *testing.T) {
	signals := cache.NewSignalCache(cache.NewMemoryStore(), time.Minute, time.Hour)
	srv := newTestServer(&stubSource{candles: trendingCandles(10)}, signals)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signal?symbol=BTCUSDT", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetSignalStaleFallback(t *testing.T) {
	signals := cache.NewSignalCache(cache.NewMemoryStore(), time.Minute, time.Hour)
	stale := &models.AnalysisResult{
		ID:          "cached",
		Symbol:      "BTCUSDT",
		FinalSignal: models.SignalHold,
		GeneratedAt: time.Now().Add(-10 * time.Minute),
	}
	if err := signals.Put(context.Background(), stale); err != nil {
		t.Fatal(err)
	}

	srv := newTestServer(&stubSource{err: errors.New("exchange down")}, signals)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signal?symbol=BTCUSDT", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with stale body", rec.Code)
	}
	var resp signalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Stale || resp.ID != "cached" {
		t.Errorf("expected stale cached signal, got %+v", resp)
	}
}

func TestGetSignalUpstreamDownNoCache(t *testing.T) {
	signals := cache.NewSignalCache(cache.NewMemoryStore(), time.Minute, time.Hour)
	srv := newTestServer(&stubSource{err: errors.New("exchange down")}, signals)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signal?symbol=BTCUSDT", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	signals := cache.NewSignalCache(cache.NewMemoryStore(), time.Minute, time.Hour)
	srv := newTestServer(&stubSource{candles: trendingCandles(100)}, signals)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
