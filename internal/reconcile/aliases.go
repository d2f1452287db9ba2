package reconcile

// Field names a logical field of a record, independent of how a client spells it.
type Field string

// Logical field constants
const (
	FieldSymbol           Field = "symbol"
	FieldName             Field = "name"
	FieldSector           Field = "sector"
	FieldBuyPrice         Field = "buyPrice"
	FieldCurrentPrice     Field = "currentPrice"
	FieldSellPrice        Field = "sellPrice"
	FieldQuantity         Field = "quantity"
	FieldInvested         Field = "invested"
	FieldCurrentValue     Field = "currentValue"
	FieldRealized         Field = "realized"
	FieldPurchaseDate     Field = "purchaseDate"
	FieldSellDate         Field = "sellDate"
	FieldLastUpdated      Field = "lastUpdated"
	FieldAddedDate        Field = "addedDate"
	FieldDayChange        Field = "dayChange"
	FieldDayChangePercent Field = "dayChangePercent"
	FieldTargetPrice      Field = "targetPrice"
	FieldStopLoss         Field = "stopLoss"
	FieldPositionSize     Field = "position"
	FieldNotes            Field = "notes"
	FieldHoldingPeriod    Field = "holdingPeriod"
)

// AliasTable maps each logical field to the record keys accepted for it,
// highest priority first.
type AliasTable map[Field][]string

// Keys returns the accepted keys for f in priority order.
func (a AliasTable) Keys(f Field) []string {
	return a[f]
}

// PositionAliases is the alias priority table for open positions.
var PositionAliases = AliasTable{
	FieldSymbol:           {"ticker", "symbol"},
	FieldName:             {"name"},
	FieldSector:           {"sector"},
	FieldBuyPrice:         {"buyPrice", "buy_price"},
	FieldCurrentPrice:     {"currentPrice", "current_price"},
	FieldQuantity:         {"quantity"},
	FieldInvested:         {"invested"},
	FieldCurrentValue:     {"currentValue", "current_value"},
	FieldPurchaseDate:     {"purchaseDate", "purchase_date", "buyDate"},
	FieldLastUpdated:      {"lastUpdated", "last_updated"},
	FieldDayChange:        {"dayChange", "day_change"},
	FieldDayChangePercent: {"dayChangePercent", "day_change_percent"},
	FieldTargetPrice:      {"targetPrice", "target_price"},
	FieldStopLoss:         {"stopLoss", "stop_loss"},
	FieldPositionSize:     {"position", "positionSize", "position_size"},
}

// WatchlistAliases is the alias priority table for watchlist entries.
var WatchlistAliases = AliasTable{
	FieldSymbol:           {"ticker", "symbol"},
	FieldName:             {"name"},
	FieldSector:           {"sector"},
	FieldCurrentPrice:     {"currentPrice", "current_price"},
	FieldDayChange:        {"dayChange", "day_change"},
	FieldDayChangePercent: {"dayChangePercent", "day_change_percent"},
	FieldTargetPrice:      {"targetPrice", "target_price"},
	FieldStopLoss:         {"stopLoss", "stop_loss"},
	FieldNotes:            {"notes"},
	FieldAddedDate:        {"addedDate", "added_date"},
	FieldLastUpdated:      {"lastUpdated", "last_updated"},
}

// ClosedPositionAliases is the alias priority table for closed positions.
var ClosedPositionAliases = AliasTable{
	FieldSymbol:        {"ticker", "symbol"},
	FieldName:          {"name"},
	FieldSector:        {"sector"},
	FieldBuyPrice:      {"buyPrice", "buy_price"},
	FieldSellPrice:     {"sellPrice", "closePrice", "close_price"},
	FieldQuantity:      {"quantity"},
	FieldInvested:      {"invested"},
	FieldRealized:      {"realized", "closeValue", "close_value"},
	FieldPurchaseDate:  {"buyDate", "purchaseDate", "purchase_date"},
	FieldSellDate:      {"sellDate", "closedDate", "closed_date"},
	FieldHoldingPeriod: {"holdingPeriod", "holding_period"},
	FieldNotes:         {"notes"},
}
