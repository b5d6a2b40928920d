package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/internal/analyze"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/api/binance"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/api/feargreed"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/config"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/database"
	"github.com/nimazasinich/crypto-dt-source-sub011/internal/notify"
)

const helpText = `Commands:
/subscribe SYMBOL [min_confidence] — get signals for a symbol (e.g. /subscribe BTCUSDT 40)
/unsubscribe SYMBOL — stop signals for a symbol
/list — show your subscriptions
/signal SYMBOL — run an analysis right now
/help — this message`

type botApp struct {
	bot     *tgbotapi.BotAPI
	db      *database.DB
	manager *analyze.Manager
	source  *binance.Client
	cfg     *config.Config
	logger  zerolog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := log.Level(lvl).With().Str("component", "tgbot").Logger()

	if cfg.TelegramToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	params, err := config.LoadParams(cfg.ParamsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load engine parameters")
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

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	logger.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")

	app := &botApp{
		bot:     bot,
		db:      db,
		manager: analyze.NewManager(params, provider),
		source:  source,
		cfg:     cfg,
		logger:  logger,
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	for update := range bot.GetUpdatesChan(updateConfig) {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		app.handleCommand(update.Message)
	}
}

func (a *botApp) handleCommand(message *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	chatID := message.Chat.ID
	args := strings.Fields(message.CommandArguments())

	switch message.Command() {
	case "start", "help":
		a.reply(chatID, helpText)
	case "subscribe":
		a.handleSubscribe(ctx, chatID, args)
	case "unsubscribe":
		a.handleUnsubscribe(ctx, chatID, args)
	case "list":
		a.handleList(ctx, chatID)
	case "signal":
		a.handleSignal(ctx, chatID, args)
	default:
		a.reply(chatID, "Unknown command. Try /help.")
	}
}

func (a *botApp) handleSubscribe(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		a.reply(chatID, "Usage: /subscribe SYMBOL [min_confidence]")
		return
	}
	symbol := strings.ToUpper(args[0])

	minConfidence := 0.0
	if len(args) > 1 {
		parsed, err := strconv.ParseFloat(args[1], 64)
		if err != nil || parsed < 0 || parsed > 100 {
			a.reply(chatID, "min_confidence must be a number between 0 and 100")
			return
		}
		minConfidence = parsed
	}

	sub, err := a.db.Subscribe(ctx, chatID, symbol, a.cfg.Interval, minConfidence)
	if err != nil {
		a.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Subscribe failed")
		a.reply(chatID, "Sorry, something went wrong. Please try again later.")
		return
	}
	a.reply(chatID, fmt.Sprintf("Subscribed to %s (%s, min confidence %.0f%%).", sub.Symbol, sub.Interval, sub.MinConfidence))
}

func (a *botApp) handleUnsubscribe(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		a.reply(chatID, "Usage: /unsubscribe SYMBOL")
		return
	}
	symbol := strings.ToUpper(args[0])

	if err := a.db.Unsubscribe(ctx, chatID, symbol); err != nil {
		a.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Unsubscribe failed")
		a.reply(chatID, "Sorry, something went wrong. Please try again later.")
		return
	}
	a.reply(chatID, fmt.Sprintf("Unsubscribed from %s.", symbol))
}

func (a *botApp) handleList(ctx context.Context, chatID int64) {
	subs, err := a.db.GetChatSubscriptions(ctx, chatID)
	if err != nil {
		a.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Listing subscriptions failed")
		a.reply(chatID, "Sorry, something went wrong. Please try again later.")
		return
	}
	if len(subs) == 0 {
		a.reply(chatID, "No subscriptions yet. Use /subscribe SYMBOL to add one.")
		return
	}

	var b strings.Builder
	b.WriteString("Your subscriptions:\n")
	for _, sub := range subs {
		fmt.Fprintf(&b, "• %s (%s, min confidence %.0f%%)\n", sub.Symbol, sub.Interval, sub.MinConfidence)
	}
	a.reply(chatID, b.String())
}

func (a *botApp) handleSignal(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		a.reply(chatID, "Usage: /signal SYMBOL")
		return
	}
	symbol := strings.ToUpper(args[0])

	candles, err := a.source.GetCandles(ctx, symbol, a.cfg.Interval, a.cfg.CandleCount)
	if err != nil {
		a.logger.Error().Err(err).Str("symbol", symbol).Msg("Candle fetch failed")
		a.reply(chatID, fmt.Sprintf("Could not fetch data for %s. Is the symbol correct?", symbol))
		return
	}

	result, err := a.manager.Analyze(ctx, candles, symbol)
	if err != nil {
		a.logger.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
		a.reply(chatID, "Analysis failed. Please try again later.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, notify.FormatSignal(result))
	msg.ParseMode = "Markdown"
	if _, err := a.bot.Send(msg); err != nil {
		a.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send signal")
	}
}

func (a *botApp) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := a.bot.Send(msg); err != nil {
		a.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}
