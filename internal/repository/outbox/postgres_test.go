package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"order-engine/internal/dbtest"
	"order-engine/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPostgres_InsertFetchMarkSent(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(dbtest.Pool(t))

	orderID := uuid.NewString()
	for _, typ := range []string{events.OrderCreated, events.OrderShipped} {
		require.NoError(t, repo.Insert(ctx, events.Event{
			EventID:   uuid.NewString(),
			Type:      typ,
			OrderID:   orderID,
			CreatedAt: time.Now(),
			Payload:   map[string]any{"status": "Pending"},
		}))
	}

	pending, err := repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, events.OrderCreated, pending[0].EventType)
	require.Equal(t, orderID, pending[0].AggregateID)

	var ev events.Event
	require.NoError(t, json.Unmarshal(pending[0].Payload, &ev))
	require.Equal(t, "Pending", ev.Payload["status"])

	require.NoError(t, repo.MarkSent(ctx, []int64{pending[0].ID}))
	pending, err = repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, events.OrderShipped, pending[0].EventType)
}
