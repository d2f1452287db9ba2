package api

import (
	"context"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
	"github.com/trogers1052/portfolio-tracker/internal/reconcile"
)

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

// fakeService resolves submitted records with a real reconciler and returns
// err from every call when set.
type fakeService struct {
	rec *reconcile.Reconciler
	err error

	userID  int
	records []models.RawRecord

	positions []*models.Position
	watchlist []*models.WatchlistEntry
	closed    []*models.ClosedPosition

	buy        *portfolio.BuyOrder
	sell       *portfolio.SellOrder
	watchBuy   *portfolio.WatchlistBuyOrder
	sellResult *portfolio.SellResult
}

func newFakeService() *fakeService {
	return &fakeService{rec: reconcile.NewWithClock(func() time.Time { return fixedNow })}
}

func (f *fakeService) Positions(_ context.Context, userID int) ([]*models.Position, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	if f.positions == nil {
		return []*models.Position{}, nil
	}
	return f.positions, nil
}

func (f *fakeService) Watchlist(_ context.Context, userID int) ([]*models.WatchlistEntry, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	if f.watchlist == nil {
		return []*models.WatchlistEntry{}, nil
	}
	return f.watchlist, nil
}

func (f *fakeService) ClosedPositions(_ context.Context, userID int) ([]*models.ClosedPosition, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	if f.closed == nil {
		return []*models.ClosedPosition{}, nil
	}
	return f.closed, nil
}

func (f *fakeService) ReplacePositions(_ context.Context, userID int, records []models.RawRecord) ([]*models.Position, error) {
	f.userID, f.records = userID, records
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.Position{}
	for _, raw := range records {
		if p, ok := f.rec.Position(raw); ok {
			p.UserID = userID
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeService) ReplaceWatchlist(_ context.Context, userID int, records []models.RawRecord) ([]*models.WatchlistEntry, error) {
	f.userID, f.records = userID, records
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.WatchlistEntry{}
	for _, raw := range records {
		if w, ok := f.rec.WatchlistEntry(raw); ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeService) ReplaceClosedPositions(_ context.Context, userID int, records []models.RawRecord) ([]*models.ClosedPosition, error) {
	f.userID, f.records = userID, records
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.ClosedPosition{}
	for _, raw := range records {
		if c, ok := f.rec.ClosedPosition(raw); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeService) ClosedSummary(_ context.Context, userID int) (*models.ClosedSummary, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return reconcile.SummarizeClosed(f.closed), nil
}

func (f *fakeService) Buy(_ context.Context, userID int, order portfolio.BuyOrder) (*models.Position, error) {
	f.userID, f.buy = userID, &order
	if f.err != nil {
		return nil, f.err
	}
	return &models.Position{ID: 1, UserID: userID, Symbol: order.Symbol, Quantity: order.Quantity, BuyPrice: order.Price}, nil
}

func (f *fakeService) Sell(_ context.Context, userID int, order portfolio.SellOrder) (*portfolio.SellResult, error) {
	f.userID, f.sell = userID, &order
	if f.err != nil {
		return nil, f.err
	}
	return f.sellResult, nil
}

func (f *fakeService) BuyFromWatchlist(_ context.Context, userID int, order portfolio.WatchlistBuyOrder) (*models.Position, error) {
	f.userID, f.watchBuy = userID, &order
	if f.err != nil {
		return nil, f.err
	}
	return &models.Position{ID: 2, UserID: userID, Quantity: order.Quantity, BuyPrice: order.Price}, nil
}

type fakeUsers struct {
	users   []*models.User
	stats   map[int]*models.UserStats
	created *models.User
	err     error
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) error {
	if f.err != nil {
		return f.err
	}
	u.ID = len(f.users) + 1
	f.created = u
	f.users = append(f.users, u)
	return nil
}

func (f *fakeUsers) GetAllUsers(context.Context) ([]*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func (f *fakeUsers) GetUserStats(_ context.Context, userID int) (*models.UserStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.stats[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return s, nil
}

type fakeHealth struct {
	status database.HealthStatus
}

func (f fakeHealth) Health(context.Context) database.HealthStatus {
	return f.status
}
