package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/analyze"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/api/binance"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/api/feargreed"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/cache"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/database"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/metrics"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/notify"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/server"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/watch"
	"github.com/nimazasinich/crypto-dt-source-sub011/models"
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
	log.Logger = log.Level(lvl)

	params, err := config.LoadParams(cfg.ParamsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load engine parameters")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

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

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisEnabled {
		redisStore := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisStore.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable")
		}
		defer redisStore.Close()
		store = redisStore
	}
	signals := cache.NewSignalCache(
		store,
		time.Duration(cfg.CacheFreshForSec)*time.Second,
		time.Duration(cfg.CacheRetentionSec)*time.Second,
	)

	manager := analyze.NewManager(params, provider, analyze.WithMetrics(recorder))

	var db *database.DB
	var notifier models.SignalNotifier
	if cfg.DatabaseEnabled {
		db, err = database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if cfg.TelegramToken != "" {
			notifier, err = notify.NewTelegramNotifier(cfg.TelegramToken, db)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect Telegram bot")
			}
		}
	}

	var watchStore watch.Store
	if db != nil {
		watchStore = db
	}
	watcher := watch.New(watch.Options{
		Manager:     manager,
		Source:      source,
		Signals:     signals,
		Store:       watchStore,
		Notifier:    notifier,
		Interval:    time.Duration(cfg.WatchIntervalSec) * time.Second,
		Timeframe:   cfg.Interval,
		CandleCount: cfg.CandleCount,
		Symbols:     cfg.Symbols,
	})

	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Watcher stopped unexpectedly")
		}
	}()

	handler := server.NewSignalHandler(manager, source, signals)
	srv := server.New(server.Config{
		Host: cfg.ServerHost,
		Port: cfg.ServerPort,
	}, handler, registry)

	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
	log.Info().Msg("Shutdown complete")
}
