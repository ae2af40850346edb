package voucher

import (
	"context"
	"errors"

	"order-engine/internal/db"
	"order-engine/internal/domain"
	"order-engine/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	retry  *db.Retrier
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger, retry *db.Retrier) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("voucher_repo"), retry: retry}
}

func scanVoucher(row pgx.Row) (domain.Voucher, error) {
	var v domain.Voucher
	err := row.Scan(&v.ID, &v.Code, &v.Discount, &v.ValidFrom, &v.ValidUntil, &v.CreatedAt)
	return v, err
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	const q = `
SELECT id::text, code, discount, valid_from, valid_until, created_at
FROM vouchers
WHERE code = $1
`
	var v domain.Voucher
	err := r.retry.Do(ctx, func() error {
		var err error
		v, err = scanVoucher(db.Executor(ctx, r.pool).QueryRow(ctx, q, code))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get voucher", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	return &v, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, in UpsertInput) (*domain.Voucher, error) {
	const q = `
INSERT INTO vouchers (code, discount, valid_from, valid_until)
VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO UPDATE
SET discount = EXCLUDED.discount,
    valid_from = EXCLUDED.valid_from,
    valid_until = EXCLUDED.valid_until
RETURNING id::text, code, discount, valid_from, valid_until, created_at
`
	v, err := scanVoucher(db.Executor(ctx, r.pool).QueryRow(ctx, q, in.Code, in.Discount, in.ValidFrom, in.ValidUntil))
	if err != nil {
		r.logger.Error("upsert voucher", zap.String("code", in.Code), zap.Error(err))
		return nil, err
	}
	return &v, nil
}
