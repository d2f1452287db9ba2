// Package portfolio implements the user-facing collection operations on top of
// the replace-all store: cached reads, replaces that notify subscribers, and
// the buy / sell lifecycle.
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

var (
	// ErrNotFound means the referenced position or watchlist entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOrder means a buy or sell order failed validation.
	ErrInvalidOrder = errors.New("invalid order")
)

// Store is the persistence the service depends on
type Store interface {
	ListPositions(ctx context.Context, userID int) ([]*models.Position, error)
	ListWatchlist(ctx context.Context, userID int) ([]*models.WatchlistEntry, error)
	ListClosedPositions(ctx context.Context, userID int) ([]*models.ClosedPosition, error)
	ReplaceAllPositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.Position, error)
	ReplaceAllWatchlist(ctx context.Context, userID int, records []models.RawRecord) ([]*models.WatchlistEntry, error)
	ReplaceAllClosedPositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.ClosedPosition, error)
	MutateCollections(ctx context.Context, userID int, fn func(cur *database.Collections) (*database.Batch, error)) (*database.BatchResult, error)
}

// Cache is an optional read-through cache of listings. A Set must be given
// the Version read before the listing was loaded; writes older than the last
// Invalidate are dropped.
type Cache interface {
	Version(ctx context.Context, userID int) (int64, error)
	Positions(ctx context.Context, userID int) ([]*models.Position, bool, error)
	SetPositions(ctx context.Context, userID int, version int64, positions []*models.Position) error
	Watchlist(ctx context.Context, userID int) ([]*models.WatchlistEntry, bool, error)
	SetWatchlist(ctx context.Context, userID int, version int64, entries []*models.WatchlistEntry) error
	ClosedPositions(ctx context.Context, userID int) ([]*models.ClosedPosition, bool, error)
	SetClosedPositions(ctx context.Context, userID int, version int64, closed []*models.ClosedPosition) error
	ClosedSummary(ctx context.Context, userID int) (*models.ClosedSummary, bool, error)
	SetClosedSummary(ctx context.Context, userID int, version int64, summary *models.ClosedSummary) error
	Invalidate(ctx context.Context, userID int, kinds ...models.Kind) error
}

// Publisher announces committed replaces
type Publisher interface {
	PublishCollectionReplaced(ctx context.Context, userID int, kind models.Kind, count int) error
}

// Service coordinates the store with the optional cache and publisher
type Service struct {
	store  Store
	cache  Cache
	events Publisher
	log    zerolog.Logger
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithCache enables read-through caching.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublisher enables replace notifications.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log.With().Str("component", "portfolio").Logger() }
}

// WithClock overrides the clock used for default order dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Positions lists the user's open positions.
func (s *Service) Positions(ctx context.Context, userID int) ([]*models.Position, error) {
	if s.cache == nil {
		return s.store.ListPositions(ctx, userID)
	}
	return readThrough(ctx, s, userID, models.KindPositions, s.cache.Positions, s.cache.SetPositions, s.store.ListPositions)
}

// Watchlist lists the user's watchlist.
func (s *Service) Watchlist(ctx context.Context, userID int) ([]*models.WatchlistEntry, error) {
	if s.cache == nil {
		return s.store.ListWatchlist(ctx, userID)
	}
	return readThrough(ctx, s, userID, models.KindWatchlist, s.cache.Watchlist, s.cache.SetWatchlist, s.store.ListWatchlist)
}

// ClosedPositions lists the user's closed positions.
func (s *Service) ClosedPositions(ctx context.Context, userID int) ([]*models.ClosedPosition, error) {
	if s.cache == nil {
		return s.store.ListClosedPositions(ctx, userID)
	}
	return readThrough(ctx, s, userID, models.KindClosedPositions, s.cache.ClosedPositions, s.cache.SetClosedPositions, s.store.ListClosedPositions)
}

// ReplacePositions replaces the user's open positions.
func (s *Service) ReplacePositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.Position, error) {
	stored, err := s.store.ReplaceAllPositions(ctx, userID, records)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, userID, map[models.Kind]int{models.KindPositions: len(stored)})
	return stored, nil
}

// ReplaceWatchlist replaces the user's watchlist.
func (s *Service) ReplaceWatchlist(ctx context.Context, userID int, records []models.RawRecord) ([]*models.WatchlistEntry, error) {
	stored, err := s.store.ReplaceAllWatchlist(ctx, userID, records)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, userID, map[models.Kind]int{models.KindWatchlist: len(stored)})
	return stored, nil
}

// ReplaceClosedPositions replaces the user's closed positions.
func (s *Service) ReplaceClosedPositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.ClosedPosition, error) {
	stored, err := s.store.ReplaceAllClosedPositions(ctx, userID, records)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, userID, map[models.Kind]int{models.KindClosedPositions: len(stored)})
	return stored, nil
}

// Replace replaces the collection of kind and returns how many records were stored.
func (s *Service) Replace(ctx context.Context, userID int, kind models.Kind, records []models.RawRecord) (int, error) {
	switch kind {
	case models.KindPositions:
		stored, err := s.ReplacePositions(ctx, userID, records)
		return len(stored), err
	case models.KindWatchlist:
		stored, err := s.ReplaceWatchlist(ctx, userID, records)
		return len(stored), err
	case models.KindClosedPositions:
		stored, err := s.ReplaceClosedPositions(ctx, userID, records)
		return len(stored), err
	}
	return 0, fmt.Errorf("unknown collection kind %q", kind)
}

// mutate builds a batch from the user's current collections and commits it
// while the store holds the user's lock, then runs the post-commit hooks for
// every kind the batch replaced.
func (s *Service) mutate(ctx context.Context, userID int, fn func(cur *database.Collections) (*database.Batch, error)) (*database.BatchResult, error) {
	var kinds []models.Kind
	result, err := s.store.MutateCollections(ctx, userID, func(cur *database.Collections) (*database.Batch, error) {
		b, err := fn(cur)
		if err != nil || b == nil {
			return b, err
		}
		kinds = b.Kinds()
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Kind]int, len(kinds))
	for _, kind := range kinds {
		counts[kind] = result.Count(kind)
	}
	s.afterCommit(ctx, userID, counts)
	return result, nil
}

// afterCommit drops stale cache entries and publishes one event per kind.
// Failures are logged; the replace has already committed.
func (s *Service) afterCommit(ctx context.Context, userID int, counts map[models.Kind]int) {
	kinds := make([]models.Kind, 0, len(counts))
	for _, kind := range models.Kinds {
		if _, ok := counts[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		return
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID, kinds...); err != nil {
			s.log.Warn().Err(err).Int("user_id", userID).Msg("failed to invalidate cache")
		}
	}

	if s.events != nil {
		for _, kind := range kinds {
			if err := s.events.PublishCollectionReplaced(ctx, userID, kind, counts[kind]); err != nil {
				s.log.Warn().Err(err).Int("user_id", userID).Str("kind", string(kind)).Msg("failed to publish replace event")
			}
		}
	}
}

func readThrough[T any](
	ctx context.Context,
	s *Service,
	userID int,
	kind models.Kind,
	get func(context.Context, int) (T, bool, error),
	set func(context.Context, int, int64, T) error,
	load func(context.Context, int) (T, error),
) (T, error) {
	if v, ok, err := get(ctx, userID); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Str("kind", string(kind)).Msg("cache read failed")
	} else if ok {
		return v, nil
	}

	version, versionErr := s.cache.Version(ctx, userID)
	if versionErr != nil {
		s.log.Warn().Err(versionErr).Int("user_id", userID).Msg("cache version read failed")
	}

	v, err := load(ctx, userID)
	if err != nil || versionErr != nil {
		return v, err
	}
	if err := set(ctx, userID, version, v); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Str("kind", string(kind)).Msg("cache write failed")
	}
	return v, nil
}

// toRaw turns a stored record back into the sparse form accepted by replace.
func toRaw(v any) (models.RawRecord, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var raw models.RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return raw, nil
}

func toRawAll[T any](recs []T) ([]models.RawRecord, error) {
	out := make([]models.RawRecord, 0, len(recs))
	for _, r := range recs {
		raw, err := toRaw(r)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}
