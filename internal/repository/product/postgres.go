package product

import (
	"context"
	"errors"

	"order-engine/internal/db"
	"order-engine/internal/domain"
	"order-engine/internal/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	retry  *db.Retrier
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger, retry *db.Retrier) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("product_repo"), retry: retry}
}

const selectProduct = `
SELECT id::text, sku, name, price, promo_price, created_at
FROM products
`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.PromoPrice, &p.CreatedAt)
	return p, err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	var p domain.Product
	err := r.retry.Do(ctx, func() error {
		var err error
		p, err = scanProduct(db.Executor(ctx, r.pool).QueryRow(ctx, selectProduct+`WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("product not found", zap.String("product_id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get product", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) FindMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	result := make(map[string]domain.Product, len(valid))
	if len(valid) == 0 {
		return result, nil
	}

	err := r.retry.Do(ctx, func() error {
		rows, err := db.Executor(ctx, r.pool).Query(ctx, selectProduct+`WHERE id = ANY($1::uuid[])`, valid)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			result[p.ID] = p
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("find products", zap.Int("requested", len(valid)), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("find products", zap.Int("requested", len(valid)), zap.Int("found", len(result)))
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, in UpsertInput) (*domain.Product, error) {
	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		return nil, domain.Errorf(domain.KindInvalidInput, "price %q: %v", in.Price, err)
	}
	var promo decimal.NullDecimal
	if in.PromoPrice != "" {
		if promo.Decimal, err = decimal.NewFromString(in.PromoPrice); err != nil {
			return nil, domain.Errorf(domain.KindInvalidInput, "promo price %q: %v", in.PromoPrice, err)
		}
		promo.Valid = true
	}

	const q = `
INSERT INTO products (sku, name, price, promo_price)
VALUES ($1, $2, $3, $4)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    price = EXCLUDED.price,
    promo_price = EXCLUDED.promo_price
RETURNING id::text, sku, name, price, promo_price, created_at
`
	p, err := scanProduct(db.Executor(ctx, r.pool).QueryRow(ctx, q, in.SKU, in.Name, price, promo))
	if err != nil {
		r.logger.Error("upsert product", zap.String("sku", in.SKU), zap.Error(err))
		return nil, err
	}
	return &p, nil
}
