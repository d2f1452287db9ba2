package portfolio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/reconcile"
)

// BuyOrder opens a new position
type BuyOrder struct {
	Symbol       string              `json:"symbol"`
	Name         string              `json:"name,omitempty"`
	Sector       string              `json:"sector,omitempty"`
	Quantity     int                 `json:"quantity"`
	Price        decimal.Decimal     `json:"price"`
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
	Date         string              `json:"date,omitempty"`
	TargetPrice  decimal.NullDecimal `json:"targetPrice"`
	StopLoss     decimal.NullDecimal `json:"stopLoss"`
	PositionSize string              `json:"position,omitempty"`
}

// SellOrder sells some or all of an open position
type SellOrder struct {
	PositionID int             `json:"positionId"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Date       string          `json:"date,omitempty"`
	Notes      *string         `json:"notes,omitempty"`
}

// WatchlistBuyOrder buys a watchlist entry into the portfolio
type WatchlistBuyOrder struct {
	EntryID     int                 `json:"entryId"`
	Quantity    int                 `json:"quantity"`
	Price       decimal.Decimal     `json:"price"`
	Date        string              `json:"date,omitempty"`
	TargetPrice decimal.NullDecimal `json:"targetPrice"`
	StopLoss    decimal.NullDecimal `json:"stopLoss"`
}

// SellResult is the outcome of a sell. Remaining is nil after a full sell.
type SellResult struct {
	Closed    *models.ClosedPosition `json:"closed"`
	Remaining *models.Position       `json:"remaining"`
}

func validateQuantityPrice(quantity int, price decimal.Decimal) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, quantity)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative, got %s", ErrInvalidOrder, price)
	}
	return nil
}

// orderDate parses an optional order date, defaulting to today.
func (s *Service) orderDate(date string) (time.Time, error) {
	if strings.TrimSpace(date) == "" {
		return models.DateOf(s.now()), nil
	}
	t, ok := models.ParseTime(date)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidOrder, date)
	}
	return models.DateOf(t), nil
}

// Buy adds a new position ahead of the user's existing ones.
func (s *Service) Buy(ctx context.Context, userID int, order BuyOrder) (*models.Position, error) {
	if strings.TrimSpace(order.Symbol) == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if err := validateQuantityPrice(order.Quantity, order.Price); err != nil {
		return nil, err
	}
	date, err := s.orderDate(order.Date)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"symbol":       strings.TrimSpace(order.Symbol),
		"buyPrice":     order.Price,
		"quantity":     order.Quantity,
		"purchaseDate": date.Format(models.DateFormat),
		"targetPrice":  order.TargetPrice,
		"stopLoss":     order.StopLoss,
	}
	if order.CurrentPrice.Valid {
		fields["currentPrice"] = order.CurrentPrice
	}
	if order.Name != "" {
		fields["name"] = order.Name
	}
	if order.Sector != "" {
		fields["sector"] = order.Sector
	}
	if order.PositionSize != "" {
		fields["position"] = order.PositionSize
	}

	result, err := s.mutate(ctx, userID, func(cur *database.Collections) (*database.Batch, error) {
		existing, err := toRawAll(cur.Positions)
		if err != nil {
			return nil, err
		}
		records := append([]models.RawRecord{models.NewRawRecord(fields)}, existing...)
		return database.NewBatch().Replace(models.KindPositions, records), nil
	})
	if err != nil {
		return nil, err
	}
	return result.Positions[0], nil
}

// Sell sells order.Quantity shares of a position. A partial sell keeps the
// rest of the position with re-derived values; a full sell removes it. Either
// way exactly one closed position is recorded, in the same transaction.
func (s *Service) Sell(ctx context.Context, userID int, order SellOrder) (*SellResult, error) {
	if err := validateQuantityPrice(order.Quantity, order.Price); err != nil {
		return nil, err
	}
	sellDate, err := s.orderDate(order.Date)
	if err != nil {
		return nil, err
	}

	var (
		idx      = -1
		symbol   string
		fullSell bool
	)
	result, err := s.mutate(ctx, userID, func(cur *database.Collections) (*database.Batch, error) {
		positions := cur.Positions
		for i, p := range positions {
			if p.ID == order.PositionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("position %d: %w", order.PositionID, ErrNotFound)
		}

		held := positions[idx]
		if order.Quantity > held.Quantity {
			return nil, fmt.Errorf("%w: cannot sell %d shares of %s, only %d held", ErrInvalidOrder, order.Quantity, held.Symbol, held.Quantity)
		}
		symbol = held.Symbol

		closedFields := map[string]any{
			"symbol":    held.Symbol,
			"name":      held.Name,
			"buyPrice":  held.BuyPrice,
			"sellPrice": order.Price,
			"quantity":  order.Quantity,
			"buyDate":   held.PurchaseDate.Format(models.DateFormat),
			"sellDate":  sellDate.Format(models.DateFormat),
			"notes":     order.Notes,
		}
		if held.Sector != "" {
			closedFields["sector"] = held.Sector
		}

		fullSell = order.Quantity == held.Quantity
		if fullSell {
			positions = append(positions[:idx], positions[idx+1:]...)
		} else {
			held.Quantity -= order.Quantity
			held.LastUpdated = s.now().UTC().Truncate(time.Microsecond)
			reconcile.DerivePosition(held)
		}

		positionRecords, err := toRawAll(positions)
		if err != nil {
			return nil, err
		}
		closedRecords, err := toRawAll(cur.ClosedPositions)
		if err != nil {
			return nil, err
		}
		closedRecords = append([]models.RawRecord{models.NewRawRecord(closedFields)}, closedRecords...)

		return database.NewBatch().
			Replace(models.KindPositions, positionRecords).
			Replace(models.KindClosedPositions, closedRecords), nil
	})
	if err != nil {
		return nil, err
	}

	out := &SellResult{Closed: result.ClosedPositions[0]}
	if !fullSell {
		out.Remaining = result.Positions[idx]
	}

	s.log.Info().
		Int("user_id", userID).
		Str("symbol", symbol).
		Int("quantity", order.Quantity).
		Bool("full", fullSell).
		Msg("position sold")

	return out, nil
}

// BuyFromWatchlist buys a watchlist entry. If the user already holds the
// symbol the shares are added to that position at a quantity-weighted average
// buy price; otherwise a new position is opened. The entry leaves the
// watchlist in the same transaction.
func (s *Service) BuyFromWatchlist(ctx context.Context, userID int, order WatchlistBuyOrder) (*models.Position, error) {
	if err := validateQuantityPrice(order.Quantity, order.Price); err != nil {
		return nil, err
	}
	date, err := s.orderDate(order.Date)
	if err != nil {
		return nil, err
	}

	resultIdx := 0
	result, err := s.mutate(ctx, userID, func(cur *database.Collections) (*database.Batch, error) {
		entries := cur.Watchlist
		entryIdx := -1
		for i, w := range entries {
			if w.ID == order.EntryID {
				entryIdx = i
				break
			}
		}
		if entryIdx < 0 {
			return nil, fmt.Errorf("watchlist entry %d: %w", order.EntryID, ErrNotFound)
		}
		entry := entries[entryIdx]
		entries = append(entries[:entryIdx], entries[entryIdx+1:]...)

		positions := cur.Positions
		positionRecords, err := toRawAll(positions)
		if err != nil {
			return nil, err
		}

		heldIdx := -1
		for i, p := range positions {
			if p.Symbol == entry.Symbol {
				heldIdx = i
				break
			}
		}

		if heldIdx >= 0 {
			held := positions[heldIdx]
			total := held.Quantity + order.Quantity
			cost := held.BuyPrice.Mul(decimal.NewFromInt(int64(held.Quantity))).
				Add(order.Price.Mul(decimal.NewFromInt(int64(order.Quantity))))
			held.BuyPrice = reconcile.Price(cost.Div(decimal.NewFromInt(int64(total))))
			held.Quantity = total
			held.LastUpdated = s.now().UTC().Truncate(time.Microsecond)
			reconcile.DerivePosition(held)

			raw, err := toRaw(held)
			if err != nil {
				return nil, err
			}
			positionRecords[heldIdx] = raw
			resultIdx = heldIdx
		} else {
			currentPrice := order.Price
			if entry.CurrentPrice.Valid {
				currentPrice = entry.CurrentPrice.Decimal
			}
			fields := map[string]any{
				"symbol":       entry.Symbol,
				"name":         entry.Name,
				"sector":       entry.Sector,
				"buyPrice":     order.Price,
				"currentPrice": currentPrice,
				"quantity":     order.Quantity,
				"purchaseDate": date.Format(models.DateFormat),
				"dayChange":    entry.DayChange,
				"targetPrice":  order.TargetPrice,
				"stopLoss":     order.StopLoss,
			}
			if entry.DayChangePercent.Valid {
				fields["dayChangePercent"] = entry.DayChangePercent
			}
			positionRecords = append([]models.RawRecord{models.NewRawRecord(fields)}, positionRecords...)
		}

		watchlistRecords, err := toRawAll(entries)
		if err != nil {
			return nil, err
		}

		return database.NewBatch().
			Replace(models.KindPositions, positionRecords).
			Replace(models.KindWatchlist, watchlistRecords), nil
	})
	if err != nil {
		return nil, err
	}
	return result.Positions[resultIdx], nil
}

// ClosedSummary returns the user's closed positions with every derived field
// recomputed, plus totals.
func (s *Service) ClosedSummary(ctx context.Context, userID int) (*models.ClosedSummary, error) {
	var (
		version    int64
		versionErr error
	)
	if s.cache != nil {
		summary, ok, err := s.cache.ClosedSummary(ctx, userID)
		if err != nil {
			s.log.Warn().Err(err).Int("user_id", userID).Msg("cache read failed")
		} else if ok {
			return summary, nil
		}
		if version, versionErr = s.cache.Version(ctx, userID); versionErr != nil {
			s.log.Warn().Err(versionErr).Int("user_id", userID).Msg("cache version read failed")
		}
	}

	closed, err := s.ClosedPositions(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := reconcile.SummarizeClosed(closed)

	if s.cache != nil && versionErr == nil {
		if err := s.cache.SetClosedSummary(ctx, userID, version, summary); err != nil {
			s.log.Warn().Err(err).Int("user_id", userID).Msg("cache write failed")
		}
	}
	return summary, nil
}
