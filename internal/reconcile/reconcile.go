// Package reconcile turns loosely-shaped client records into fully populated,
// internally consistent positions, watchlist entries and closed positions.
//
// Fields a client supplies are kept. Missing fields are derived in dependency
// order from the fields already resolved. P&L and P&L percent are always
// recomputed so that they agree with the resolved invested and current or
// realized values.
package reconcile

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Reconciler resolves raw records. The zero value is not usable; use New.
type Reconciler struct {
	now func() time.Time
}

// New returns a Reconciler that reads the wall clock for date defaults.
func New() *Reconciler {
	return &Reconciler{now: time.Now}
}

// NewWithClock returns a Reconciler that uses now for date and timestamp defaults.
func NewWithClock(now func() time.Time) *Reconciler {
	return &Reconciler{now: now}
}

func (r *Reconciler) today() time.Time {
	return models.DateOf(r.now())
}

// Position resolves raw into an open position. The boolean is false when the
// record carries no symbol.
func (r *Reconciler) Position(raw models.RawRecord) (*models.Position, bool) {
	a := PositionAliases
	symbol, ok := identity(raw, a.Keys(FieldSymbol))
	if !ok {
		return nil, false
	}

	p := &models.Position{Symbol: symbol}
	p.Name = stringOr(raw, a.Keys(FieldName), symbol+" Ltd")
	p.Sector, _ = raw.String(a.Keys(FieldSector)...)
	p.BuyPrice = nonNegativeOr(raw, a.Keys(FieldBuyPrice), decimal.Zero)
	p.CurrentPrice = nonNegativeOr(raw, a.Keys(FieldCurrentPrice), p.BuyPrice)
	p.Quantity = quantityOr(raw, a.Keys(FieldQuantity))

	qty := decimal.NewFromInt(int64(p.Quantity))
	p.Invested = Money(decimalOr(raw, a.Keys(FieldInvested), p.BuyPrice.Mul(qty)))
	p.CurrentValue = Money(decimalOr(raw, a.Keys(FieldCurrentValue), p.CurrentPrice.Mul(qty)))
	p.PL = p.CurrentValue.Sub(p.Invested)
	p.PLPercent = Percent(p.PL, p.Invested)

	p.PurchaseDate = dateOr(raw, a.Keys(FieldPurchaseDate), r.today())
	p.LastUpdated = timeOr(raw, a.Keys(FieldLastUpdated), r.now())
	p.DayChange = Price(decimalOr(raw, a.Keys(FieldDayChange), decimal.Zero))
	p.DayChangePercent = Percent2(decimalOr(raw, a.Keys(FieldDayChangePercent), decimal.Zero))
	p.TargetPrice = nullDecimal(raw, a.Keys(FieldTargetPrice))
	p.StopLoss = nullDecimal(raw, a.Keys(FieldStopLoss))
	p.PositionSize = stringOr(raw, a.Keys(FieldPositionSize), models.DefaultPositionSize)

	return p, true
}

// WatchlistEntry resolves raw into a watchlist entry. The boolean is false
// when the record carries no symbol.
func (r *Reconciler) WatchlistEntry(raw models.RawRecord) (*models.WatchlistEntry, bool) {
	a := WatchlistAliases
	symbol, ok := identity(raw, a.Keys(FieldSymbol))
	if !ok {
		return nil, false
	}

	w := &models.WatchlistEntry{Symbol: symbol}
	w.Name = stringOr(raw, a.Keys(FieldName), symbol+" Ltd")
	w.Sector = stringOr(raw, a.Keys(FieldSector), models.DefaultSector)
	w.CurrentPrice = nullDecimal(raw, a.Keys(FieldCurrentPrice))
	w.DayChange = nullDecimal(raw, a.Keys(FieldDayChange))
	w.DayChangePercent = nullDecimal(raw, a.Keys(FieldDayChangePercent))
	if w.DayChangePercent.Valid {
		w.DayChangePercent.Decimal = Percent2(w.DayChangePercent.Decimal)
	}
	w.TargetPrice = nullDecimal(raw, a.Keys(FieldTargetPrice))
	w.StopLoss = nullDecimal(raw, a.Keys(FieldStopLoss))
	if notes, ok := raw.String(a.Keys(FieldNotes)...); ok {
		w.Notes = &notes
	}
	w.AddedDate = dateOr(raw, a.Keys(FieldAddedDate), r.today())
	w.LastUpdated = timeOr(raw, a.Keys(FieldLastUpdated), r.now())

	return w, true
}

// ClosedPosition resolves raw into a closed position. The boolean is false
// when the record carries no symbol.
//
// The holding period is taken from the record when it is a day count,
// otherwise computed from the buy and sell dates when the record supplies both
// as valid dates, otherwise it is unavailable.
func (r *Reconciler) ClosedPosition(raw models.RawRecord) (*models.ClosedPosition, bool) {
	a := ClosedPositionAliases
	symbol, ok := identity(raw, a.Keys(FieldSymbol))
	if !ok {
		return nil, false
	}

	c := &models.ClosedPosition{Symbol: symbol}
	c.Name = stringOr(raw, a.Keys(FieldName), symbol+" Ltd")
	c.Sector, _ = raw.String(a.Keys(FieldSector)...)
	c.BuyPrice = nonNegativeOr(raw, a.Keys(FieldBuyPrice), decimal.Zero)
	c.SellPrice = nonNegativeOr(raw, a.Keys(FieldSellPrice), c.BuyPrice)
	c.Quantity = quantityOr(raw, a.Keys(FieldQuantity))

	qty := decimal.NewFromInt(int64(c.Quantity))
	c.Invested = Money(decimalOr(raw, a.Keys(FieldInvested), c.BuyPrice.Mul(qty)))
	c.Realized = Money(decimalOr(raw, a.Keys(FieldRealized), c.SellPrice.Mul(qty)))
	c.PL = c.Realized.Sub(c.Invested)
	c.PLPercent = Percent(c.PL, c.Invested)

	buyDate, hasBuy := raw.Time(a.Keys(FieldPurchaseDate)...)
	sellDate, hasSell := raw.Time(a.Keys(FieldSellDate)...)
	c.BuyDate = r.today()
	if hasBuy {
		c.BuyDate = models.DateOf(buyDate)
	}
	c.SellDate = r.today()
	if hasSell {
		c.SellDate = models.DateOf(sellDate)
	}

	if h, ok := raw.HoldingPeriod(a.Keys(FieldHoldingPeriod)...); ok {
		c.HoldingPeriod = h
	} else if hasBuy && hasSell {
		c.HoldingPeriod = HoldingDays(c.BuyDate, c.SellDate)
	}

	if notes, ok := raw.String(a.Keys(FieldNotes)...); ok {
		c.Notes = &notes
	}

	return c, true
}

func identity(raw models.RawRecord, keys []string) (string, bool) {
	for _, k := range keys {
		s, ok := raw.String(k)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

func stringOr(raw models.RawRecord, keys []string, def string) string {
	if s, ok := raw.String(keys...); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

func decimalOr(raw models.RawRecord, keys []string, def decimal.Decimal) decimal.Decimal {
	if d, ok := raw.Decimal(keys...); ok {
		return d
	}
	return def
}

// nonNegativeOr is decimalOr for prices: a negative price counts as absent.
func nonNegativeOr(raw models.RawRecord, keys []string, def decimal.Decimal) decimal.Decimal {
	for _, k := range keys {
		if d, ok := raw.Decimal(k); ok && !d.IsNegative() {
			return Price(d)
		}
	}
	return def
}

func quantityOr(raw models.RawRecord, keys []string) int {
	for _, k := range keys {
		if n, ok := raw.Int(k); ok && n >= 0 {
			return n
		}
	}
	return 0
}

func nullDecimal(raw models.RawRecord, keys []string) decimal.NullDecimal {
	if d, ok := raw.Decimal(keys...); ok {
		return decimal.NewNullDecimal(Price(d))
	}
	return decimal.NullDecimal{}
}

func dateOr(raw models.RawRecord, keys []string, def time.Time) time.Time {
	if t, ok := raw.Time(keys...); ok {
		return models.DateOf(t)
	}
	return def
}

func timeOr(raw models.RawRecord, keys []string, def time.Time) time.Time {
	if t, ok := raw.Time(keys...); ok {
		def = t
	}
	// timestamps are stored with microsecond precision
	return def.UTC().Truncate(time.Microsecond)
}
