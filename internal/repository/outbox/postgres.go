package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"order-engine/internal/db"
	"order-engine/internal/events"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Insert(ctx context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = db.Executor(ctx, r.pool).Exec(ctx, `
INSERT INTO outbox (event_id, event_type, aggregate_id, payload, created_at)
VALUES ($1, $2, $3, $4, $5)
`, ev.EventID, ev.Type, ev.OrderID, data, ev.CreatedAt)
	return err
}

func (r *postgresRepo) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := db.Executor(ctx, r.pool).Query(ctx, `
SELECT id, event_id::text, event_type, aggregate_id, payload, created_at, sent_at
FROM outbox
WHERE sent_at IS NULL
ORDER BY id
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.EventType, &rec.AggregateID, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.Executor(ctx, r.pool).Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = ANY($1)`, ids)
	return err
}
