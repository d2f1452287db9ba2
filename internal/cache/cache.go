// Package cache keeps a read-through copy of each user's collections in Redis.
// Entries are dropped after every replace; Redis is never the source of truth.
//
// Each user has a version counter that every invalidation increments. A
// listing is only written back if the version it was loaded under is still
// current, so a read that overlaps a replace cannot restore the old listing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

const (
	keyPrefix     = "portfolio:user"
	summarySuffix = "closed_summary"
	versionSuffix = "version"
)

// errStaleVersion aborts a write whose listing predates an invalidation.
var errStaleVersion = errors.New("cache version changed")

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache wraps a Redis client
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// New creates a Cache from cfg. It does not contact Redis; use Ping.
func New(cfg Config, log zerolog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg.TTL, log)
}

// NewWithClient creates a Cache over an existing client
func NewWithClient(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "cache").Logger(),
	}
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *Cache) Close() error {
	return c.client.Close()
}

// Key returns the Redis key holding one collection of a user.
func Key(userID int, kind models.Kind) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, userID, kind)
}

func summaryKey(userID int) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, userID, summarySuffix)
}

func versionKey(userID int) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, userID, versionSuffix)
}

// Version returns the user's current cache version. Pass it to the Set
// methods together with a listing loaded after the call.
func (c *Cache) Version(ctx context.Context, userID int) (int64, error) {
	version, err := readVersion(ctx, c.client, versionKey(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to read cache version for user %d: %w", userID, err)
	}
	return version, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, g getter, key string) (int64, error) {
	version, err := g.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// Positions returns the cached open positions. The boolean is false on a miss.
func (c *Cache) Positions(ctx context.Context, userID int) ([]*models.Position, bool, error) {
	return get[[]*models.Position](ctx, c, Key(userID, models.KindPositions))
}

// SetPositions caches the user's open positions if version is still current
func (c *Cache) SetPositions(ctx context.Context, userID int, version int64, positions []*models.Position) error {
	return set(ctx, c, userID, version, Key(userID, models.KindPositions), positions)
}

// Watchlist returns the cached watchlist. The boolean is false on a miss.
func (c *Cache) Watchlist(ctx context.Context, userID int) ([]*models.WatchlistEntry, bool, error) {
	return get[[]*models.WatchlistEntry](ctx, c, Key(userID, models.KindWatchlist))
}

// SetWatchlist caches the user's watchlist
func (c *Cache) SetWatchlist(ctx context.Context, userID int, version int64, entries []*models.WatchlistEntry) error {
	return set(ctx, c, userID, version, Key(userID, models.KindWatchlist), entries)
}

// ClosedPositions returns the cached closed positions. The boolean is false on a miss.
func (c *Cache) ClosedPositions(ctx context.Context, userID int) ([]*models.ClosedPosition, bool, error) {
	return get[[]*models.ClosedPosition](ctx, c, Key(userID, models.KindClosedPositions))
}

// SetClosedPositions caches the user's closed positions
func (c *Cache) SetClosedPositions(ctx context.Context, userID int, version int64, closed []*models.ClosedPosition) error {
	return set(ctx, c, userID, version, Key(userID, models.KindClosedPositions), closed)
}

// ClosedSummary returns the cached closed-position summary. The boolean is false on a miss.
func (c *Cache) ClosedSummary(ctx context.Context, userID int) (*models.ClosedSummary, bool, error) {
	return get[*models.ClosedSummary](ctx, c, summaryKey(userID))
}

// SetClosedSummary caches the user's closed-position summary
func (c *Cache) SetClosedSummary(ctx context.Context, userID int, version int64, summary *models.ClosedSummary) error {
	return set(ctx, c, userID, version, summaryKey(userID), summary)
}

// Invalidate drops the cached kinds of a user, or every kind when none are
// given, and bumps the user's version. Dropping closed positions also drops
// the summary derived from them.
func (c *Cache) Invalidate(ctx context.Context, userID int, kinds ...models.Kind) error {
	if len(kinds) == 0 {
		kinds = models.Kinds
	}

	keys := make([]string, 0, len(kinds)+1)
	for _, kind := range kinds {
		keys = append(keys, Key(userID, kind))
		if kind == models.KindClosedPositions {
			keys = append(keys, summaryKey(userID))
		}
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cache for user %d: %w", userID, err)
	}
	c.log.Debug().Int("user_id", userID).Strs("keys", keys).Msg("cache invalidated")
	return nil
}

func get[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, false, nil
	}
	if err != nil {
		return out, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, &out); err != nil {
		// a stale or foreign payload is a miss, not a failure
		c.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return out, false, nil
	}
	return out, true, nil
}

func set[T any](ctx context.Context, c *Cache, userID int, version int64, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	vkey := versionKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, vkey)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, vkey)

	if errors.Is(err, errStaleVersion) || errors.Is(err, redis.TxFailedErr) {
		c.log.Debug().Str("key", key).Int64("version", version).Msg("skipping stale cache write")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
