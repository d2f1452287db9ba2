package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/reconcile"
)

var testNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

// fakeStore keeps collections in memory with the same reconcile and
// all-or-nothing semantics as the database store.
type fakeStore struct {
	mu        sync.Mutex
	rec       *reconcile.Reconciler
	nextID    int
	positions []*models.Position
	watchlist []*models.WatchlistEntry
	closed    []*models.ClosedPosition

	replaceErr error
	listErr    error
	lists      map[models.Kind]int
	replaces   int

	// afterList runs once a list has read its snapshot, before it returns.
	afterList func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rec:   reconcile.NewWithClock(func() time.Time { return testNow }),
		lists: make(map[models.Kind]int),
	}
}

func (f *fakeStore) seedPositions(raws ...map[string]any) {
	f.positions = f.resolvePositions(toRecords(raws))
}

func (f *fakeStore) seedWatchlist(raws ...map[string]any) {
	f.watchlist = f.resolveWatchlist(toRecords(raws))
}

func (f *fakeStore) seedClosed(raws ...map[string]any) {
	f.closed = f.resolveClosed(toRecords(raws))
}

func toRecords(raws []map[string]any) []models.RawRecord {
	out := make([]models.RawRecord, 0, len(raws))
	for _, r := range raws {
		out = append(out, models.NewRawRecord(r))
	}
	return out
}

func (f *fakeStore) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) resolvePositions(raws []models.RawRecord) []*models.Position {
	out := make([]*models.Position, 0, len(raws))
	for _, raw := range raws {
		if p, ok := f.rec.Position(raw); ok {
			p.ID = f.id()
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeStore) resolveWatchlist(raws []models.RawRecord) []*models.WatchlistEntry {
	out := make([]*models.WatchlistEntry, 0, len(raws))
	for _, raw := range raws {
		if w, ok := f.rec.WatchlistEntry(raw); ok {
			w.ID = f.id()
			out = append(out, w)
		}
	}
	return out
}

func (f *fakeStore) resolveClosed(raws []models.RawRecord) []*models.ClosedPosition {
	out := make([]*models.ClosedPosition, 0, len(raws))
	for _, raw := range raws {
		if c, ok := f.rec.ClosedPosition(raw); ok {
			c.ID = f.id()
			out = append(out, c)
		}
	}
	return out
}

func copyAll[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, v := range in {
		cp := *v
		out = append(out, &cp)
	}
	return out
}

func (f *fakeStore) ListPositions(ctx context.Context, userID int) ([]*models.Position, error) {
	f.mu.Lock()
	f.lists[models.KindPositions]++
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	out := copyAll(f.positions)
	f.mu.Unlock()

	f.runAfterList()
	return out, nil
}

func (f *fakeStore) ListWatchlist(ctx context.Context, userID int) ([]*models.WatchlistEntry, error) {
	f.mu.Lock()
	f.lists[models.KindWatchlist]++
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	out := copyAll(f.watchlist)
	f.mu.Unlock()

	f.runAfterList()
	return out, nil
}

func (f *fakeStore) ListClosedPositions(ctx context.Context, userID int) ([]*models.ClosedPosition, error) {
	f.mu.Lock()
	f.lists[models.KindClosedPositions]++
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	out := copyAll(f.closed)
	f.mu.Unlock()

	f.runAfterList()
	return out, nil
}

func (f *fakeStore) runAfterList() {
	f.mu.Lock()
	hook := f.afterList
	f.afterList = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (f *fakeStore) ReplaceAllPositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.Position, error) {
	result, err := f.ReplaceCollections(ctx, userID, database.NewBatch().Replace(models.KindPositions, records))
	if err != nil {
		return nil, err
	}
	return result.Positions, nil
}

func (f *fakeStore) ReplaceAllWatchlist(ctx context.Context, userID int, records []models.RawRecord) ([]*models.WatchlistEntry, error) {
	result, err := f.ReplaceCollections(ctx, userID, database.NewBatch().Replace(models.KindWatchlist, records))
	if err != nil {
		return nil, err
	}
	return result.Watchlist, nil
}

func (f *fakeStore) ReplaceAllClosedPositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.ClosedPosition, error) {
	result, err := f.ReplaceCollections(ctx, userID, database.NewBatch().Replace(models.KindClosedPositions, records))
	if err != nil {
		return nil, err
	}
	return result.ClosedPositions, nil
}

func (f *fakeStore) ReplaceCollections(ctx context.Context, userID int, b *database.Batch) (*database.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apply(b)
}

// MutateCollections holds the store lock across fn, serializing mutations
// the way the per-user transaction lock does.
func (f *fakeStore) MutateCollections(ctx context.Context, userID int, fn func(cur *database.Collections) (*database.Batch, error)) (*database.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := fn(&database.Collections{
		Positions:       copyAll(f.positions),
		Watchlist:       copyAll(f.watchlist),
		ClosedPositions: copyAll(f.closed),
	})
	if err != nil {
		return nil, err
	}
	if b == nil || len(b.Kinds()) == 0 {
		return &database.BatchResult{}, nil
	}
	return f.apply(b)
}

func (f *fakeStore) apply(b *database.Batch) (*database.BatchResult, error) {
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	f.replaces++

	result := &database.BatchResult{}
	for _, kind := range b.Kinds() {
		switch kind {
		case models.KindPositions:
			result.Positions = f.resolvePositions(b.Records(kind))
		case models.KindWatchlist:
			result.Watchlist = f.resolveWatchlist(b.Records(kind))
		case models.KindClosedPositions:
			result.ClosedPositions = f.resolveClosed(b.Records(kind))
		default:
			return nil, fmt.Errorf("unknown kind %q", kind)
		}
	}

	// commit
	if result.Positions != nil {
		f.positions = copyAll(result.Positions)
	}
	if result.Watchlist != nil {
		f.watchlist = copyAll(result.Watchlist)
	}
	if result.ClosedPositions != nil {
		f.closed = copyAll(result.ClosedPositions)
	}
	return result, nil
}

type fakeCache struct {
	mu          sync.Mutex
	positions   map[int][]*models.Position
	watchlist   map[int][]*models.WatchlistEntry
	closed      map[int][]*models.ClosedPosition
	summaries   map[int]*models.ClosedSummary
	versions    map[int]int64
	invalidated [][]models.Kind
	err         error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		positions: make(map[int][]*models.Position),
		watchlist: make(map[int][]*models.WatchlistEntry),
		closed:    make(map[int][]*models.ClosedPosition),
		summaries: make(map[int]*models.ClosedSummary),
		versions:  make(map[int]int64),
	}
}

func (c *fakeCache) Version(ctx context.Context, userID int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.versions[userID], nil
}

func (c *fakeCache) Positions(ctx context.Context, userID int) ([]*models.Position, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.positions[userID]
	return v, ok, nil
}

func (c *fakeCache) SetPositions(ctx context.Context, userID int, version int64, positions []*models.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if version != c.versions[userID] {
		return nil
	}
	c.positions[userID] = positions
	return nil
}

func (c *fakeCache) Watchlist(ctx context.Context, userID int) ([]*models.WatchlistEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.watchlist[userID]
	return v, ok, nil
}

func (c *fakeCache) SetWatchlist(ctx context.Context, userID int, version int64, entries []*models.WatchlistEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if version != c.versions[userID] {
		return nil
	}
	c.watchlist[userID] = entries
	return nil
}

func (c *fakeCache) ClosedPositions(ctx context.Context, userID int) ([]*models.ClosedPosition, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.closed[userID]
	return v, ok, nil
}

func (c *fakeCache) SetClosedPositions(ctx context.Context, userID int, version int64, closed []*models.ClosedPosition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if version != c.versions[userID] {
		return nil
	}
	c.closed[userID] = closed
	return nil
}

func (c *fakeCache) ClosedSummary(ctx context.Context, userID int) (*models.ClosedSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.summaries[userID]
	return v, ok, nil
}

func (c *fakeCache) SetClosedSummary(ctx context.Context, userID int, version int64, summary *models.ClosedSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if version != c.versions[userID] {
		return nil
	}
	c.summaries[userID] = summary
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, userID int, kinds ...models.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, kinds)
	if c.err != nil {
		return c.err
	}
	c.versions[userID]++
	for _, kind := range kinds {
		switch kind {
		case models.KindPositions:
			delete(c.positions, userID)
		case models.KindWatchlist:
			delete(c.watchlist, userID)
		case models.KindClosedPositions:
			delete(c.closed, userID)
			delete(c.summaries, userID)
		}
	}
	return nil
}

type publishedEvent struct {
	UserID int
	Kind   models.Kind
	Count  int
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishCollectionReplaced(ctx context.Context, userID int, kind models.Kind, count int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Kind: kind, Count: count})
	return p.err
}
