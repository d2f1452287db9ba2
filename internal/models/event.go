package models

import "time"

// Event type constants
const (
	EventCollectionReplaced = "COLLECTION_REPLACED"
	EventCollectionSnapshot = "COLLECTION_SNAPSHOT"
)

// CollectionEvent is published after a user's collection has been replaced
type CollectionEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	UserID    int       `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotEvent carries a full collection to be stored with replace-all semantics
type SnapshotEvent struct {
	EventType string      `json:"event_type"`
	Source    string      `json:"source"`
	Timestamp string      `json:"timestamp"`
	UserID    int         `json:"user_id"`
	Kind      Kind        `json:"kind"`
	Records   []RawRecord `json:"records"`
}
