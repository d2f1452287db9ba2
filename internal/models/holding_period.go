package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// HoldingPeriodUnavailable is the literal reported when no day count is known.
const HoldingPeriodUnavailable = "N/A"

// HoldingPeriod is either a whole-day count or unavailable.
type HoldingPeriod struct {
	Days  int
	Valid bool
}

// DaysHeld returns an available holding period of n days.
func DaysHeld(n int) HoldingPeriod {
	return HoldingPeriod{Days: n, Valid: true}
}

func (h HoldingPeriod) String() string {
	if !h.Valid {
		return HoldingPeriodUnavailable
	}
	return fmt.Sprintf("%d days", h.Days)
}

// MarshalJSON encodes a day count as a number and an unavailable period as "N/A".
func (h HoldingPeriod) MarshalJSON() ([]byte, error) {
	if !h.Valid {
		return json.Marshal(HoldingPeriodUnavailable)
	}
	return []byte(strconv.Itoa(h.Days)), nil
}

// UnmarshalJSON accepts a number, a numeric string, or any other string
// (decoded as unavailable).
func (h *HoldingPeriod) UnmarshalJSON(data []byte) error {
	*h = HoldingPeriod{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "days"))
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			*h = DaysHeld(int(n))
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid holding period %s: %w", string(data), err)
	}
	*h = DaysHeld(int(n))
	return nil
}

// Scan implements sql.Scanner for a nullable integer column.
func (h *HoldingPeriod) Scan(value interface{}) error {
	*h = HoldingPeriod{}
	switch v := value.(type) {
	case nil:
		return nil
	case int64:
		*h = DaysHeld(int(v))
	case []byte:
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return fmt.Errorf("failed to scan holding period: %w", err)
		}
		*h = DaysHeld(n)
	default:
		return fmt.Errorf("failed to scan holding period: unsupported type %T", value)
	}
	return nil
}

// Value implements driver.Valuer; unavailable periods are stored as NULL.
func (h HoldingPeriod) Value() (driver.Value, error) {
	if !h.Valid {
		return nil, nil
	}
	return int64(h.Days), nil
}
