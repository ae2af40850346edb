package product

import (
	"context"

	"order-engine/internal/domain"
)

type UpsertInput struct {
	SKU        string
	Name       string
	Price      string
	PromoPrice string
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// FindMany returns the products that exist among ids, keyed by id.
	FindMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
	Upsert(ctx context.Context, in UpsertInput) (*domain.Product, error)
}
