package outbox

import (
	"context"
	"encoding/json"
	"time"

	"order-engine/internal/events"
)

// Record is a stored event awaiting or past publication.
type Record struct {
	ID          int64
	EventID     string
	EventType   string
	AggregateID string
	Payload     json.RawMessage
	CreatedAt   time.Time
	SentAt      *time.Time
}

type Repository interface {
	// Insert stores ev. Called with a transaction-bound context it commits
	// or rolls back together with the surrounding writes.
	Insert(ctx context.Context, ev events.Event) error
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, ids []int64) error
}
