package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// SubscriptionStore is the subscriber lookup the notifier needs.
type SubscriptionStore interface {
	GetSubscribers(ctx context.Context, symbol string) ([]models.Subscription, error)
}

// botAPI is the subset of tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers finished analyses to subscribed chats. It
// implements models.SignalNotifier.
type TelegramNotifier struct {
	bot    botAPI
	store  SubscriptionStore
	logger zerolog.Logger
}

// NewTelegramNotifier connects to the Telegram Bot API.
func NewTelegramNotifier(token string, store SubscriptionStore) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting telegram bot: %w", err)
	}
	return &TelegramNotifier{
		bot:    bot,
		store:  store,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// Notify sends the signal to every subscriber of the symbol whose
// confidence floor it clears. Delivery failures for individual chats
// are logged and skipped.
func (n *TelegramNotifier) Notify(ctx context.Context, result *models.AnalysisResult) error {
	subs, err := n.store.GetSubscribers(ctx, result.Symbol)
	if err != nil {
		return fmt.Errorf("loading subscribers for %s: %w", result.Symbol, err)
	}
	if len(subs) == 0 {
		return nil
	}

	text := FormatSignal(result)
	sent := 0
	for _, sub := range subs {
		if result.Confidence < sub.MinConfidence {
			continue
		}
		msg := tgbotapi.NewMessage(sub.ChatID, text)
		msg.ParseMode = "Markdown"
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Warn().Err(err).Int64("chat_id", sub.ChatID).Msg("Failed to deliver signal")
			continue
		}
		sent++
	}

	n.logger.Info().
		Str("symbol", result.Symbol).
		Str("signal", string(result.FinalSignal)).
		Int("delivered", sent).
		Int("subscribers", len(subs)).
		Msg("Signal broadcast")
	return nil
}

// FormatSignal renders a human-readable Telegram message for result.
func FormatSignal(result *models.AnalysisResult) string {
	var b strings.Builder

	emoji := "⏸"
	switch result.FinalSignal {
	case models.SignalBuy:
		emoji = "📈"
	case models.SignalSell:
		emoji = "📉"
	}

	fmt.Fprintf(&b, "%s *%s* — %s\n\n", emoji, result.Symbol, strings.ToUpper(string(result.FinalSignal)))
	fmt.Fprintf(&b, "Score: %.1f | Confidence: %.1f%%\n", result.FinalScore, result.Confidence)
	fmt.Fprintf(&b, "Regime: %s\n", result.Regime)
	if result.Transition != nil {
		fmt.Fprintf(&b, "⚠️ Regime change: %s → %s (%s)\n", result.Transition.From, result.Transition.To, result.Transition.Significance)
	}
	fmt.Fprintf(&b, "\nPrice: %.4f\nStop loss: %.4f\n", result.CurrentPrice, result.StopLoss)
	for _, tp := range result.TakeProfitLevels {
		fmt.Fprintf(&b, "%s: %.4f (R:R %.2f)\n", tp.Type, tp.Level, tp.RiskReward)
	}
	return b.String()
}
