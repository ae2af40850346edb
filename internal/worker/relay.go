// Package worker runs background loops next to the HTTP server.
package worker

import (
	"context"
	"fmt"
	"time"

	"order-engine/internal/events"
	"order-engine/internal/logging"
	"order-engine/internal/metrics"
	"order-engine/internal/repository/outbox"

	"go.uber.org/zap"
)

type outboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkSent(ctx context.Context, ids []int64) error
}

// Relay publishes pending outbox records on a fixed interval. Delivery is
// at least once: a record is marked sent only after the broker accepted it.
type Relay struct {
	store     outboxStore
	publisher events.Publisher
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewRelay(store outboxStore, publisher events.Publisher, interval time.Duration, batchSize int, logger *zap.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logging.OrNop(logger).Named("outbox_relay"),
		metrics:   m,
	}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					r.logger.Warn("relay outbox batch", zap.Error(err))
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many records it sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	records, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	msgs := make([]events.Message, len(records))
	ids := make([]int64, len(records))
	for i, rec := range records {
		msgs[i] = events.Message{Key: rec.AggregateID, Type: rec.EventType, Value: rec.Payload}
		ids[i] = rec.ID
	}

	if err := r.publisher.Publish(ctx, msgs...); err != nil {
		r.metrics.OutboxRelayed("error", len(records))
		return 0, fmt.Errorf("publish: %w", err)
	}
	if err := r.store.MarkSent(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark sent: %w", err)
	}
	r.metrics.OutboxRelayed("ok", len(records))
	r.logger.Debug("relayed outbox batch", zap.Int("count", len(records)))
	return len(records), nil
}
