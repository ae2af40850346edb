package cart

import (
	"context"
	"errors"

	"order-engine/internal/db"
	"order-engine/internal/domain"
	"order-engine/internal/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	tx     *db.Transactor
	logger *zap.Logger
	retry  *db.Retrier
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger, retry *db.Retrier) Repository {
	return &postgresRepo{
		pool:   pool,
		tx:     db.NewTransactor(pool),
		logger: logging.OrNop(logger).Named("cart_repo"),
		retry:  retry,
	}
}

func (r *postgresRepo) Create(ctx context.Context, userID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id)
VALUES ($1)
RETURNING id::text, user_id, version, created_at, updated_at
`
	var cart domain.Cart
	if err := db.Executor(ctx, r.pool).QueryRow(ctx, q, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Version,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	var cart *domain.Cart
	err := r.retry.Do(ctx, func() error {
		var err error
		cart, err = r.fetchCart(ctx, id)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("get cart", zap.String("cart_id", id), zap.Error(err))
		}
		return nil, err
	}
	return cart, nil
}

func (r *postgresRepo) AddLine(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.Errorf(domain.KindInvalidInput, "quantity must be positive")
	}
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := db.Executor(ctx, r.pool)

		if err := bumpVersion(ctx, q, cartID, nil); err != nil {
			return err
		}
		_, err := q.Exec(ctx, `
INSERT INTO cart_lines (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_lines.quantity + EXCLUDED.quantity
`, cartID, productID, quantity)
		return err
	})
}

func (r *postgresRepo) RemoveLines(ctx context.Context, cartID string, productIDs []string, expectedVersion int64) error {
	ids := distinct(productIDs)
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := db.Executor(ctx, r.pool)

		if err := bumpVersion(ctx, q, cartID, &expectedVersion); err != nil {
			return err
		}
		cmd, err := q.Exec(ctx, `
DELETE FROM cart_lines
WHERE cart_id = $1 AND product_id::text = ANY($2)
`, cartID, ids)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() != int64(len(ids)) {
			return domain.ErrConflict
		}
		return nil
	})
	if err != nil {
		r.logger.Info("remove cart lines",
			zap.String("cart_id", cartID),
			zap.Int64("expected_version", expectedVersion),
			zap.Error(err))
	}
	return err
}

func (r *postgresRepo) fetchCart(ctx context.Context, id string) (*domain.Cart, error) {
	q := db.Executor(ctx, r.pool)

	var cart domain.Cart
	err := q.QueryRow(ctx, `
SELECT id::text, user_id, version, created_at, updated_at
FROM carts
WHERE id = $1
`, id).Scan(&cart.ID, &cart.UserID, &cart.Version, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `
SELECT id::text, cart_id::text, product_id::text, quantity, created_at
FROM cart_lines
WHERE cart_id = $1
ORDER BY created_at ASC, id ASC
`, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ID, &line.CartID, &line.ProductID, &line.Quantity, &line.CreatedAt); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

// bumpVersion increments the cart version, optionally only when it still
// equals expected. A missing cart or a version mismatch is ErrConflict when
// expected is set and ErrNotFound otherwise.
func bumpVersion(ctx context.Context, q db.Querier, cartID string, expected *int64) error {
	var cmd pgconn.CommandTag
	var err error
	if expected == nil {
		cmd, err = q.Exec(ctx, `
UPDATE carts SET version = version + 1, updated_at = now()
WHERE id = $1
`, cartID)
	} else {
		cmd, err = q.Exec(ctx, `
UPDATE carts SET version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
`, cartID, *expected)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if expected == nil {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
