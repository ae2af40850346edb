package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-engine/internal/db"
	"order-engine/internal/domain"
	"order-engine/internal/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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
		logger: logging.OrNop(logger).Named("order_repo"),
		retry:  retry,
	}
}

const orderColumns = `
id::text, user_id, cart_id::text,
subtotal, tax, shipping_fee, discount, grand_total,
COALESCE(voucher_code, ''), voucher_percent,
status, payment_status, is_paid, COALESCE(transaction_ref, ''), paid_at,
contact_name, contact_phone, contact_email,
shipping_address, shipping_city, shipping_country,
created_at, updated_at
`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.CartID,
		&o.Pricing.Subtotal, &o.Pricing.Tax, &o.Pricing.ShippingFee, &o.Pricing.Discount, &o.Pricing.GrandTotal,
		&o.VoucherCode, &o.VoucherPercent,
		&o.Status, &o.PaymentStatus, &o.IsPaid, &o.TransactionRef, &o.PaidAt,
		&o.Contact.Name, &o.Contact.Phone, &o.Contact.Email,
		&o.ShippingAddress.Address, &o.ShippingAddress.City, &o.ShippingAddress.Country,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func (r *postgresRepo) Create(ctx context.Context, o *domain.Order) error {
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := db.Executor(ctx, r.pool)

		if err := q.QueryRow(ctx, `
INSERT INTO orders (
    id, user_id, cart_id,
    subtotal, tax, shipping_fee, discount, grand_total,
    voucher_code, voucher_percent,
    status, payment_status, is_paid,
    contact_name, contact_phone, contact_email,
    shipping_address, shipping_city, shipping_country
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
RETURNING created_at, updated_at
`,
			o.ID, o.UserID, o.CartID,
			o.Pricing.Subtotal, o.Pricing.Tax, o.Pricing.ShippingFee, o.Pricing.Discount, o.Pricing.GrandTotal,
			o.VoucherCode, o.VoucherPercent,
			o.Status, o.PaymentStatus, o.IsPaid,
			o.Contact.Name, o.Contact.Phone, o.Contact.Email,
			o.ShippingAddress.Address, o.ShippingAddress.City, o.ShippingAddress.Country,
		).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for i, item := range o.Items {
			batch.Queue(`
INSERT INTO order_items (order_id, position, product_id, product_name, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5, $6)
`, o.ID, i, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := q.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) GetByTransactionRef(ctx context.Context, ref string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE transaction_ref = $1`, ref)
}

func (r *postgresRepo) getOne(ctx context.Context, query string, arg string) (*domain.Order, error) {
	var o domain.Order
	err := r.retry.Do(ctx, func() error {
		q := db.Executor(ctx, r.pool)
		var err error
		if o, err = scanOrder(q.QueryRow(ctx, query, arg)); err != nil {
			return err
		}
		items, err := loadItems(ctx, q, []string{o.ID})
		if err != nil {
			return err
		}
		o.Items = items[o.ID]
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get order", zap.String("key", arg), zap.Error(err))
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	cmd, err := db.Executor(ctx, r.pool).Exec(ctx, `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
`, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *postgresRepo) MarkPaid(ctx context.Context, id string, at time.Time) (bool, error) {
	cmd, err := db.Executor(ctx, r.pool).Exec(ctx, `
UPDATE orders
SET payment_status = 'success', is_paid = true, paid_at = $2, updated_at = now()
WHERE id = $1 AND NOT is_paid
`, id, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresRepo) MarkPaymentFailed(ctx context.Context, id string) (bool, error) {
	cmd, err := db.Executor(ctx, r.pool).Exec(ctx, `
UPDATE orders
SET payment_status = 'failed', updated_at = now()
WHERE id = $1 AND payment_status <> 'success' AND NOT is_paid
`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresRepo) SetTransactionRef(ctx context.Context, id, ref string) (string, error) {
	var stored string
	err := db.Executor(ctx, r.pool).QueryRow(ctx, `
UPDATE orders
SET transaction_ref = COALESCE(transaction_ref, $2), updated_at = now()
WHERE id = $1
RETURNING transaction_ref
`, id, ref).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return stored, nil
}

func (r *postgresRepo) List(ctx context.Context, lq ListQuery) ([]domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if lq.UserID != "" {
		add("user_id = $%d", lq.UserID)
	}
	if lq.Status != "" {
		add("status = $%d", lq.Status)
	}
	if lq.CreatedAfter != nil {
		add("created_at >= $%d", *lq.CreatedAfter)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if lq.Limit > 0 {
		args = append(args, lq.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if lq.Offset > 0 {
		args = append(args, lq.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var result []domain.Order
	err := r.retry.Do(ctx, func() error {
		result = result[:0]
		q := db.Executor(ctx, r.pool)
		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return err
			}
			result = append(result, o)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		ids := make([]string, len(result))
		for i := range result {
			ids[i] = result[i].ID
		}
		items, err := loadItems(ctx, q, ids)
		if err != nil {
			return err
		}
		for i := range result {
			result[i].Items = items[result[i].ID]
		}
		return nil
	})
	if err != nil {
		r.logger.Error("list orders", zap.Any("query", lq), zap.Error(err))
		return nil, err
	}
	return result, nil
}

func loadItems(ctx context.Context, q db.Querier, orderIDs []string) (map[string][]domain.OrderItem, error) {
	out := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
SELECT order_id::text, product_id::text, product_name, quantity, unit_price
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], item)
	}
	return out, rows.Err()
}
