// Package redis journals emitted decisions to a Redis stream so downstream
// consumers (alerting, backoffice review) can replay the morning's calls.
// The journal is optional; the dashboard runs fine without Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	decisionStream = "stream:decisions"
	// Roughly a week of scans at a few hundred decisions per morning.
	streamMaxLen = 20000

	latestKeyPrefix = "latest:decision:"
	latestTTL       = 12 * time.Hour
)

// JournalConfig configures the Redis connection.
type JournalConfig struct {
	Addr     string
	Password string
	DB       int
}

// Journal appends decision records to a capped Redis stream and keeps a
// per-symbol latest-decision key for cheap lookups.
type Journal struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (j *Journal) Client() *goredis.Client { return j.client }

// New connects and pings the server.
func New(cfg JournalConfig) (*Journal, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Journal{client: client}, nil
}

// Record is one journaled decision.
type Record struct {
	Symbol     string    `json:"symbol"`
	Label      string    `json:"label"`
	Confidence string    `json:"confidence"`
	Score      int       `json:"score"`
	Rationale  string    `json:"rationale"`
	Price      float64   `json:"price"`
	At         time.Time `json:"at"`
}

// Append journals one decision. Errors are returned, not fatal; the caller
// logs and moves on since the journal is best-effort.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	if err := j.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: decisionStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"symbol": rec.Symbol,
			"label":  rec.Label,
			"data":   string(payload),
		},
	}).Err(); err != nil {
		return fmt.Errorf("redis xadd: %w", err)
	}

	if err := j.client.Set(ctx, latestKeyPrefix+rec.Symbol, payload, latestTTL).Err(); err != nil {
		return fmt.Errorf("redis set latest: %w", err)
	}
	return nil
}

// Latest returns the most recent journaled decision for a symbol, ok=false
// when none is stored.
func (j *Journal) Latest(ctx context.Context, symbol string) (Record, bool, error) {
	raw, err := j.client.Get(ctx, latestKeyPrefix+symbol).Bytes()
	if err == goredis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get latest: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("redis decode latest: %w", err)
	}
	return rec, true, nil
}

// Close releases the connection.
func (j *Journal) Close() error { return j.client.Close() }
