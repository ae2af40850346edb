package cart

import (
	"context"

	"order-engine/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, userID string) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	// AddLine adds quantity of a product to the cart, merging with an
	// existing line for the same product.
	AddLine(ctx context.Context, cartID, productID string, quantity int) error
	// RemoveLines deletes the lines for productIDs only if the cart is still
	// at expectedVersion and every one of those lines is present. Otherwise
	// nothing changes and domain.ErrConflict is returned.
	RemoveLines(ctx context.Context, cartID string, productIDs []string, expectedVersion int64) error
}
