package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nimazasinich/crypto-dt-source-sub011/models"
)

// DB wraps the PostgreSQL connection holding signal subscriptions. Only
// routing preferences live here; analysis results are never persisted.
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New opens a connection and ensures the schema exists.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signal_subscriptions (
			chat_id BIGINT NOT NULL,
			symbol TEXT NOT NULL,
			interval TEXT NOT NULL,
			min_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (chat_id, symbol)
		)
	`)
	return err
}

// Subscribe registers a chat for signals on symbol, updating the
// interval and confidence floor on repeat calls.
func (db *DB) Subscribe(ctx context.Context, chatID int64, symbol, interval string, minConfidence float64) (*models.Subscription, error) {
	sub := &models.Subscription{
		ChatID:        chatID,
		Symbol:        symbol,
		Interval:      interval,
		MinConfidence: minConfidence,
		CreatedAt:     time.Now(),
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO signal_subscriptions (chat_id, symbol, interval, min_confidence, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id, symbol)
		DO UPDATE SET
			interval = EXCLUDED.interval,
			min_confidence = EXCLUDED.min_confidence
	`, sub.ChatID, sub.Symbol, sub.Interval, sub.MinConfidence, sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe removes a chat's subscription for symbol.
func (db *DB) Unsubscribe(ctx context.Context, chatID int64, symbol string) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM signal_subscriptions
		WHERE chat_id = $1 AND symbol = $2
	`, chatID, symbol)
	return err
}

// GetSubscribers returns every subscription for symbol.
func (db *DB) GetSubscribers(ctx context.Context, symbol string) ([]models.Subscription, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chat_id, symbol, interval, min_confidence, created_at
		FROM signal_subscriptions
		WHERE symbol = $1
	`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ChatID, &sub.Symbol, &sub.Interval, &sub.MinConfidence, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// GetChatSubscriptions returns every subscription held by one chat.
func (db *DB) GetChatSubscriptions(ctx context.Context, chatID int64) ([]models.Subscription, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chat_id, symbol, interval, min_confidence, created_at
		FROM signal_subscriptions
		WHERE chat_id = $1
		ORDER BY symbol
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ChatID, &sub.Symbol, &sub.Interval, &sub.MinConfidence, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// GetSubscribedSymbols returns the distinct symbols with at least one
// subscriber, for the watcher loop.
func (db *DB) GetSubscribedSymbols(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT symbol FROM signal_subscriptions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

