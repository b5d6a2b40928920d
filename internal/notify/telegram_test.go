package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

type fakeBot struct {
	sent    []tgbotapi.MessageConfig
	failFor map[int64]bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable type")
	}
	if f.failFor[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("blocked by user")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

type fakeStore struct {
	subs []models.Subscription
	err  error
}

func (f *fakeStore) GetSubscribers(ctx context.Context, symbol string) ([]models.Subscription, error) {
	return f.subs, f.err
}

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:           "r1",
		Symbol:       "BTCUSDT",
		FinalScore:   72,
		FinalSignal:  models.SignalBuy,
		Confidence:   44,
		CurrentPrice: 50_000,
		StopLoss:     49_200,
		TakeProfitLevels: []models.TakeProfitLevel{
			{Level: 50_600, Type: "TP1", RiskReward: 0.75},
			{Level: 51_000, Type: "TP2", RiskReward: 1.25},
		},
		Regime:      models.RegimeTrendingBullish,
		GeneratedAt: time.Now(),
	}
}

func newTestNotifier(bot botAPI, store SubscriptionStore) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, store: store, logger: zerolog.Nop()}
}

func TestNotifyFiltersByConfidence(t *testing.T) {
	bot := &fakeBot{}
	store := &fakeStore{subs: []models.Subscription{
		{ChatID: 1, Symbol: "BTCUSDT", MinConfidence: 0},
		{ChatID: 2, Symbol: "BTCUSDT", MinConfidence: 80},
		{ChatID: 3, Symbol: "BTCUSDT", MinConfidence: 40},
	}}

	n := newTestNotifier(bot, store)
	if err := n.Notify(context.Background(), sampleResult()); err != nil {
		t.Fatal(err)
	}

	if len(bot.sent) != 2 {
		t.Fatalf("delivered %d messages, want 2", len(bot.sent))
	}
	if bot.sent[0].ChatID != 1 || bot.sent[1].ChatID != 3 {
		t.Errorf("delivered to wrong chats: %v, %v", bot.sent[0].ChatID, bot.sent[1].ChatID)
	}
}

func TestNotifyContinuesPastDeliveryFailure(t *testing.T) {
	bot := &fakeBot{failFor: map[int64]bool{1: true}}
	store := &fakeStore{subs: []models.Subscription{
		{ChatID: 1, Symbol: "BTCUSDT"},
		{ChatID: 2, Symbol: "BTCUSDT"},
	}}

	n := newTestNotifier(bot, store)
	if err := n.Notify(context.Background(), sampleResult()); err != nil {
		t.Fatal(err)
	}
	if len(bot.sent) != 1 || bot.sent[0].ChatID != 2 {
		t.Errorf("expected delivery to chat 2 only, got %+v", bot.sent)
	}
}

func TestNotifyStoreError(t *testing.T) {
	n := newTestNotifier(&fakeBot{}, &fakeStore{err: errors.New("db down")})
	if err := n.Notify(context.Background(), sampleResult()); err == nil {
		t.Error("expected error when subscriber lookup fails")
	}
}

func TestFormatSignal(t *testing.T) {
	text := FormatSignal(sampleResult())

	for _, want := range []string{"BTCUSDT", "BUY", "72.0", "trending-bullish", "TP1", "49200"} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
}
