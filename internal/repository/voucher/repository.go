package voucher

import (
	"context"
	"time"

	"order-engine/internal/domain"
)

type UpsertInput struct {
	Code       string
	Discount   int
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

type Repository interface {
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	Upsert(ctx context.Context, in UpsertInput) (*domain.Voucher, error)
}
