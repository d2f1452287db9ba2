package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// SnapshotHandler stores a full collection with replace-all semantics
type SnapshotHandler interface {
	Replace(ctx context.Context, userID int, kind models.Kind, records []models.RawRecord) (int, error)
}

// maxReadDelay caps the wait between failed reads.
const maxReadDelay = 30 * time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// SnapshotConsumer consumes collection snapshots from Kafka and replaces the
// matching collection of the snapshot's user.
type SnapshotConsumer struct {
	reader  messageReader
	handler SnapshotHandler
	log     zerolog.Logger

	// backoff paces retries after failed reads; nil means exponential up to maxReadDelay.
	backoff backoff.BackOff
}

func newReadBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = maxReadDelay
	return b
}

// NewSnapshotConsumer creates a new Kafka consumer for collection snapshots
func NewSnapshotConsumer(brokers []string, topic, groupID string, handler SnapshotHandler, log zerolog.Logger) *SnapshotConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &SnapshotConsumer{
		reader:  reader,
		handler: handler,
		log:     log.With().Str("component", "snapshot_consumer").Logger(),
		backoff: newReadBackOff(),
	}
}

// Start consumes messages until ctx is cancelled. Failed messages are logged
// and skipped. Read failures are retried with a growing delay that resets
// after the next successful read.
func (c *SnapshotConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting snapshot consumer")
	defer c.reader.Close()

	bo := c.backoff
	if bo == nil {
		bo = newReadBackOff()
	}

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("snapshot consumer shutting down")
				return nil
			}

			delay := bo.NextBackOff()
			if delay < 0 || delay > maxReadDelay {
				delay = maxReadDelay
			}
			c.log.Error().Err(err).Dur("retry_in", delay).Msg("failed to read message")

			select {
			case <-ctx.Done():
				c.log.Info().Msg("snapshot consumer shutting down")
				return nil
			case <-time.After(delay):
			}
			continue
		}
		bo.Reset()

		if err := c.processMessage(ctx, msg); err != nil {
			c.log.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("failed to process message")
		}
	}
}

func (c *SnapshotConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.SnapshotEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot event: %w", err)
	}

	if event.EventType != models.EventCollectionSnapshot {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}
	if event.UserID <= 0 {
		return fmt.Errorf("invalid user id %d in snapshot event", event.UserID)
	}
	kind, err := models.ParseKind(string(event.Kind))
	if err != nil {
		return err
	}

	records := event.Records
	if records == nil {
		records = []models.RawRecord{}
	}

	n, err := c.handler.Replace(ctx, event.UserID, kind, records)
	if err != nil {
		return fmt.Errorf("failed to replace %s for user %d: %w", kind, event.UserID, err)
	}

	c.log.Info().
		Int("user_id", event.UserID).
		Str("kind", string(kind)).
		Str("source", event.Source).
		Int("count", n).
		Msg("snapshot stored")
	return nil
}

// Close closes the Kafka consumer
func (c *SnapshotConsumer) Close() error {
	return c.reader.Close()
}
