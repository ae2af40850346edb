package order

import (
	"context"
	"time"

	"order-engine/internal/domain"
)

// ListQuery filters order listings. Zero values disable a filter.
type ListQuery struct {
	UserID       string
	Status       domain.OrderStatus
	CreatedAfter *time.Time
	Limit        int
	Offset       int
}

type Repository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByTransactionRef(ctx context.Context, ref string) (*domain.Order, error)
	// UpdateStatus moves the order from one status to another and returns
	// domain.ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
	// MarkPaid records a successful payment. It reports false when the order
	// was already paid.
	MarkPaid(ctx context.Context, id string, at time.Time) (bool, error)
	// MarkPaymentFailed records a failed payment unless the order is already
	// paid. It reports whether a row changed.
	MarkPaymentFailed(ctx context.Context, id string) (bool, error)
	// SetTransactionRef assigns ref when the order has none yet and returns
	// the reference stored afterwards.
	SetTransactionRef(ctx context.Context, id, ref string) (string, error)
	List(ctx context.Context, q ListQuery) ([]domain.Order, error)
}
