package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "portfolio:user:42:positions", Key(42, models.KindPositions))
	assert.Equal(t, "portfolio:user:42:watchlist", Key(42, models.KindWatchlist))
	assert.Equal(t, "portfolio:user:42:closed_positions", Key(42, models.KindClosedPositions))
	assert.Equal(t, "portfolio:user:42:closed_summary", summaryKey(42))
}

func setupRedis(t *testing.T) *Cache {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	c := NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), time.Minute, zerolog.Nop())
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Ping(ctx))
	return c
}

func TestCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	c := setupRedis(t)
	ctx := context.Background()

	t.Run("miss on empty cache", func(t *testing.T) {
		positions, ok, err := c.Positions(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, positions)
	})

	t.Run("positions round trip", func(t *testing.T) {
		want := []*models.Position{{
			ID:           3,
			UserID:       1,
			Symbol:       "TCS",
			BuyPrice:     decimal.RequireFromString("100.5"),
			Quantity:     2,
			Invested:     decimal.RequireFromString("201"),
			PurchaseDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			TargetPrice:  decimal.NewNullDecimal(decimal.NewFromInt(150)),
		}}
		require.NoError(t, c.SetPositions(ctx, 1, 0, want))

		got, ok, err := c.Positions(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, "TCS", got[0].Symbol)
		assert.True(t, want[0].BuyPrice.Equal(got[0].BuyPrice))
		assert.True(t, got[0].TargetPrice.Valid)
		assert.False(t, got[0].StopLoss.Valid)
		assert.True(t, want[0].PurchaseDate.Equal(got[0].PurchaseDate))
	})

	t.Run("empty collection is a hit", func(t *testing.T) {
		require.NoError(t, c.SetWatchlist(ctx, 2, 0, []*models.WatchlistEntry{}))

		got, ok, err := c.Watchlist(ctx, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, got)
	})

	t.Run("closed positions keep holding period", func(t *testing.T) {
		require.NoError(t, c.SetClosedPositions(ctx, 3, 0, []*models.ClosedPosition{
			{Symbol: "A", HoldingPeriod: models.DaysHeld(12)},
			{Symbol: "B"},
		}))

		got, ok, err := c.ClosedPositions(ctx, 3)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, models.DaysHeld(12), got[0].HoldingPeriod)
		assert.False(t, got[1].HoldingPeriod.Valid)
	})

	t.Run("invalidating closed positions drops the summary", func(t *testing.T) {
		require.NoError(t, c.SetClosedPositions(ctx, 4, 0, []*models.ClosedPosition{}))
		require.NoError(t, c.SetClosedSummary(ctx, 4, 0, &models.ClosedSummary{Count: 0}))
		require.NoError(t, c.SetPositions(ctx, 4, 0, []*models.Position{}))

		require.NoError(t, c.Invalidate(ctx, 4, models.KindClosedPositions))

		_, ok, err := c.ClosedSummary(ctx, 4)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = c.ClosedPositions(ctx, 4)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = c.Positions(ctx, 4)
		require.NoError(t, err)
		assert.True(t, ok, "positions were not invalidated")
	})

	t.Run("invalidate without kinds drops everything", func(t *testing.T) {
		require.NoError(t, c.SetPositions(ctx, 5, 0, []*models.Position{}))
		require.NoError(t, c.SetWatchlist(ctx, 5, 0, []*models.WatchlistEntry{}))

		require.NoError(t, c.Invalidate(ctx, 5))

		_, ok, _ := c.Positions(ctx, 5)
		assert.False(t, ok)
		_, ok, _ = c.Watchlist(ctx, 5)
		assert.False(t, ok)
	})

	t.Run("undecodable entry is a miss", func(t *testing.T) {
		require.NoError(t, c.client.Set(ctx, Key(6, models.KindPositions), "not json", time.Minute).Err())

		_, ok, err := c.Positions(ctx, 6)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, c.SetPositions(ctx, 7, 0, []*models.Position{}))
		ttl, err := c.client.TTL(ctx, Key(7, models.KindPositions)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("invalidate bumps the version", func(t *testing.T) {
		before, err := c.Version(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, int64(0), before)

		require.NoError(t, c.Invalidate(ctx, 8, models.KindPositions))
		require.NoError(t, c.Invalidate(ctx, 8, models.KindWatchlist))

		after, err := c.Version(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, int64(2), after)
	})

	t.Run("write loaded before an invalidation is dropped", func(t *testing.T) {
		version, err := c.Version(ctx, 9)
		require.NoError(t, err)

		// a replace commits while the listing is being loaded
		require.NoError(t, c.Invalidate(ctx, 9, models.KindPositions))

		require.NoError(t, c.SetPositions(ctx, 9, version, []*models.Position{{Symbol: "OLD"}}))
		_, ok, err := c.Positions(ctx, 9)
		require.NoError(t, err)
		assert.False(t, ok, "stale listing was cached")

		current, err := c.Version(ctx, 9)
		require.NoError(t, err)
		require.NoError(t, c.SetPositions(ctx, 9, current, []*models.Position{{Symbol: "NEW"}}))
		got, ok, err := c.Positions(ctx, 9)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "NEW", got[0].Symbol)
	})

	t.Run("stale summary write is dropped", func(t *testing.T) {
		version, err := c.Version(ctx, 10)
		require.NoError(t, err)
		require.NoError(t, c.Invalidate(ctx, 10, models.KindClosedPositions))

		require.NoError(t, c.SetClosedSummary(ctx, 10, version, &models.ClosedSummary{Count: 3}))
		_, ok, err := c.ClosedSummary(ctx, 10)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
