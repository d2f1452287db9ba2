package models

import "fmt"

// Kind names one of the user-owned collections
type Kind string

// Collection kind constants
const (
	KindPositions       Kind = "positions"
	KindWatchlist       Kind = "watchlist"
	KindClosedPositions Kind = "closed_positions"
)

// Kinds lists every collection kind.
var Kinds = []Kind{KindPositions, KindWatchlist, KindClosedPositions}

// ParseKind validates a collection kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown collection kind: %q", s)
}
