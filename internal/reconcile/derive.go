package reconcile

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Money rounds a monetary amount half away from zero to 2 decimal places.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Price rounds a unit price to the 4 decimal places the store keeps.
func Price(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}

// Percent2 rounds a percentage half away from zero to 2 decimal places.
func Percent2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns pl as a percentage of invested, rounded to 2 decimal
// places. It is 0 when invested is not positive.
func Percent(pl, invested decimal.Decimal) decimal.Decimal {
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return Percent2(pl.Mul(hundred).Div(invested))
}

// HoldingDays returns the whole-day difference between two calendar dates.
func HoldingDays(buy, sell time.Time) models.HoldingPeriod {
	if buy.IsZero() || sell.IsZero() {
		return models.HoldingPeriod{}
	}
	hours := models.DateOf(sell).Sub(models.DateOf(buy)).Hours()
	return models.DaysHeld(int(math.Floor(hours / 24)))
}

// DerivePosition recomputes invested, current value, P&L and P&L percent of p
// from its prices and quantity.
func DerivePosition(p *models.Position) {
	qty := decimal.NewFromInt(int64(p.Quantity))
	p.Invested = Money(p.BuyPrice.Mul(qty))
	p.CurrentValue = Money(p.CurrentPrice.Mul(qty))
	p.PL = p.CurrentValue.Sub(p.Invested)
	p.PLPercent = Percent(p.PL, p.Invested)
}

// DeriveClosed recomputes invested, realized, P&L and P&L percent of c from
// its prices and quantity. An available holding period is recomputed from the
// buy and sell dates; an unavailable one stays unavailable.
func DeriveClosed(c *models.ClosedPosition) {
	qty := decimal.NewFromInt(int64(c.Quantity))
	c.Invested = Money(c.BuyPrice.Mul(qty))
	c.Realized = Money(c.SellPrice.Mul(qty))
	c.PL = c.Realized.Sub(c.Invested)
	c.PLPercent = Percent(c.PL, c.Invested)
	if c.HoldingPeriod.Valid {
		c.HoldingPeriod = HoldingDays(c.BuyDate, c.SellDate)
	}
}

// SummarizeClosed re-derives every closed position and totals them. Stored
// derived values are not trusted. The positions are modified in place.
func SummarizeClosed(positions []*models.ClosedPosition) *models.ClosedSummary {
	s := &models.ClosedSummary{
		Positions:     positions,
		Count:         len(positions),
		TotalInvested: decimal.Zero,
		TotalRealized: decimal.Zero,
		TotalPL:       decimal.Zero,
		AverageReturn: decimal.Zero,
	}
	if s.Positions == nil {
		s.Positions = []*models.ClosedPosition{}
	}

	for _, c := range positions {
		DeriveClosed(c)
		s.TotalInvested = s.TotalInvested.Add(c.Invested)
		s.TotalRealized = s.TotalRealized.Add(c.Realized)
		s.TotalPL = s.TotalPL.Add(c.PL)
	}
	s.AverageReturn = Percent(s.TotalPL, s.TotalInvested)
	return s
}
