package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/analyze"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/api/binance"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/api/feargreed"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	params, err := config.LoadParams(cfg.ParamsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load engine parameters")
	}

	source := binance.NewClient(binance.ClientOptions{
		BaseURL:        cfg.BinanceBaseURL,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     uint64(cfg.MaxRetries),
	})
	provider := feargreed.NewClient(feargreed.ClientOptions{
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     uint64(cfg.MaxRetries),
	})

	manager := analyze.NewManager(params, provider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	for _, symbol := range cfg.Symbols {
		candles, err := source.GetCandles(ctx, symbol, cfg.Interval, cfg.CandleCount)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch candles")
			exitCode = 1
			continue
		}

		result, err := manager.Analyze(ctx, candles, symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
			exitCode = 1
			continue
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode result")
			exitCode = 1
			continue
		}
		fmt.Println(string(out))
	}

	os.Exit(exitCode)
}
