package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the calendar-date layout used for purchase, sell and added dates.
const DateFormat = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateFormat,
}

// RawRecord is a loosely-shaped record as submitted by a client: a sparse JSON
// object whose fields may be absent, null, or spelled with one of several aliases.
//
// Every getter takes the accepted aliases in priority order and returns the
// first value that is present, non-null and parseable as the requested type.
type RawRecord map[string]json.RawMessage

// NewRawRecord builds a RawRecord from plain Go values. Values that cannot be
// marshaled are dropped.
func NewRawRecord(fields map[string]any) RawRecord {
	r := make(RawRecord, len(fields))
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		r[k] = data
	}
	return r
}

func (r RawRecord) each(keys []string, fn func(raw json.RawMessage) bool) bool {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		if fn(raw) {
			return true
		}
	}
	return false
}

// String returns the first non-empty string value. JSON numbers are accepted
// and returned in their literal form.
func (r RawRecord) String(keys ...string) (string, bool) {
	var out string
	found := r.each(keys, func(raw json.RawMessage) bool {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s == "" {
				return false
			}
			out = s
			return true
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			out = n.String()
			return true
		}
		return false
	})
	return out, found
}

// Decimal returns the first value that parses as a decimal number, either a
// JSON number or a numeric string.
func (r RawRecord) Decimal(keys ...string) (decimal.Decimal, bool) {
	var out decimal.Decimal
	found := r.each(keys, func(raw json.RawMessage) bool {
		d, ok := parseDecimal(raw)
		if ok {
			out = d
		}
		return ok
	})
	return out, found
}

var (
	minInt32 = decimal.NewFromInt(math.MinInt32)
	maxInt32 = decimal.NewFromInt(math.MaxInt32)
)

// Int returns the first value that parses as a number, truncated to an
// integer. A value outside the int32 range counts as absent.
func (r RawRecord) Int(keys ...string) (int, bool) {
	d, ok := r.Decimal(keys...)
	if !ok {
		return 0, false
	}
	d = d.Truncate(0)
	if d.LessThan(minInt32) || d.GreaterThan(maxInt32) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// Time returns the first value that parses as a date or timestamp.
func (r RawRecord) Time(keys ...string) (time.Time, bool) {
	var out time.Time
	found := r.each(keys, func(raw json.RawMessage) bool {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		t, ok := ParseTime(s)
		if ok {
			out = t
		}
		return ok
	})
	return out, found
}

// HoldingPeriod returns the first value that is a day count. Descriptive
// strings such as "N/A" are skipped.
func (r RawRecord) HoldingPeriod(keys ...string) (HoldingPeriod, bool) {
	var out HoldingPeriod
	found := r.each(keys, func(raw json.RawMessage) bool {
		if err := out.UnmarshalJSON(raw); err != nil {
			return false
		}
		return out.Valid
	})
	return out, found
}

// ParseTime parses the date and timestamp layouts clients are known to send.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOf truncates t to its calendar date, expressed at midnight UTC.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	return d, err == nil
}
