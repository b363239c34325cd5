// Package redis implements sitegen.HistorySink on a Redis list per owner.
//
// Each transcript entry is a msgpack-encoded Record appended with RPUSH to
// <prefix>:<owner id>. Appends retry with exponential backoff.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fwojciec/sitegen"
)

// Defaults for Config.
const (
	DefaultPrefix  = "sitegen:history"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3
	DefaultBackoff = 500 * time.Millisecond
)

// Config configures the history sink.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL     string
	Prefix  string
	Timeout time.Duration // per attempt
	Retries int
	Backoff time.Duration // first retry delay, doubled per attempt
}

// Record is one persisted transcript entry.
type Record struct {
	OwnerID   int64               `msgpack:"owner_id"`
	Role      sitegen.HistoryRole `msgpack:"role"`
	Text      string              `msgpack:"text"`
	CreatedAt time.Time           `msgpack:"created_at"`
}

// HistorySink appends transcript records to Redis.
type HistorySink struct {
	config Config
	client *goredis.Client
	now    func() time.Time
}

var _ sitegen.HistorySink = (*HistorySink)(nil)

// New creates a HistorySink. It fails on an empty or invalid URL.
func New(cfg Config) (*HistorySink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis history requires a URL: %w", sitegen.ErrConfiguration)
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis history: invalid URL: %w: %w", sitegen.ErrConfiguration, err)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d: %w", cfg.Retries, sitegen.ErrConfiguration)
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &HistorySink{config: cfg, client: goredis.NewClient(opts), now: time.Now}, nil
}

// Key returns the list key holding ownerID's transcript.
func (s *HistorySink) Key(ownerID int64) string {
	return s.config.Prefix + ":" + strconv.FormatInt(ownerID, 10)
}

// Append RPUSHes one record, retrying on failure.
func (s *HistorySink) Append(ctx context.Context, ownerID int64, role sitegen.HistoryRole, text string) error {
	body, err := msgpack.Marshal(Record{OwnerID: ownerID, Role: role, Text: text, CreatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("redis: encode record: %w", err)
	}

	var lastErr error
	attempts := 1 + s.config.Retries
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * s.config.Backoff
			select {
			case <-ctx.Done():
				return fmt.Errorf("redis: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		pushCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		lastErr = s.client.RPush(pushCtx, s.Key(ownerID), body).Err()
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("redis: failed after %d attempts: %w: %w", attempts, sitegen.ErrIO, lastErr)
}

// Records returns ownerID's transcript in append order.
func (s *HistorySink) Records(ctx context.Context, ownerID int64) ([]Record, error) {
	raw, err := s.client.LRange(ctx, s.Key(ownerID), 0, -1).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: read history: %w: %w", sitegen.ErrIO, err)
	}
	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		var r Record
		if err := msgpack.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("redis: decode record %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Close releases the client.
func (s *HistorySink) Close() error {
	return s.client.Close()
}
