// Package seed loads a small catalogue and a demo cart for manual testing.
package seed

import (
	"context"
	"fmt"
	"time"

	"order-engine/internal/domain"
	productrepo "order-engine/internal/repository/product"
	voucherrepo "order-engine/internal/repository/voucher"

	"go.uber.org/zap"
)

type productWriter interface {
	Upsert(ctx context.Context, in productrepo.UpsertInput) (*domain.Product, error)
}

type voucherWriter interface {
	Upsert(ctx context.Context, in voucherrepo.UpsertInput) (*domain.Voucher, error)
}

type cartWriter interface {
	Create(ctx context.Context, userID string) (*domain.Cart, error)
	AddLine(ctx context.Context, cartID, productID string, quantity int) error
}

type cartLineSeed struct {
	SKU      string
	Quantity int
}

var products = []productrepo.UpsertInput{
	{SKU: "SKU-LAPTOP-14", Name: "Laptop 14\"", Price: "12000000", PromoPrice: "10000000"},
	{SKU: "SKU-MOUSE-WL", Name: "Wireless Mouse", Price: "450000"},
	{SKU: "SKU-MONITOR-27", Name: "27\" Monitor", Price: "7990000"},
	{SKU: "SKU-WORKSTATION", Name: "Workstation", Price: "55000000"},
}

var demoCart = []cartLineSeed{
	{SKU: "SKU-LAPTOP-14", Quantity: 2},
	{SKU: "SKU-MOUSE-WL", Quantity: 1},
	{SKU: "SKU-MONITOR-27", Quantity: 1},
}

// Result lists what Apply created.
type Result struct {
	ProductIDs map[string]string
	CartID     string
}

// Apply upserts products and vouchers, then creates a fresh cart for userID.
// Products and vouchers are idempotent on SKU and code; each run adds a new
// cart.
func Apply(ctx context.Context, p productWriter, v voucherWriter, c cartWriter, userID string, now time.Time, logger *zap.Logger) (Result, error) {
	res := Result{ProductIDs: make(map[string]string, len(products))}

	for _, in := range products {
		prod, err := p.Upsert(ctx, in)
		if err != nil {
			return Result{}, fmt.Errorf("upsert product %s: %w", in.SKU, err)
		}
		res.ProductIDs[in.SKU] = prod.ID
		logger.Info("product seeded", zap.String("sku", in.SKU), zap.String("id", prod.ID))
	}

	expired := now.AddDate(0, 0, -1)
	monthOut := now.AddDate(0, 1, 0)
	vouchers := []voucherrepo.UpsertInput{
		{Code: "SAVE10", Discount: 10},
		{Code: "HALF", Discount: 50, ValidFrom: &now, ValidUntil: &monthOut},
		{Code: "EXPIRED5", Discount: 5, ValidUntil: &expired},
	}
	for _, in := range vouchers {
		if _, err := v.Upsert(ctx, in); err != nil {
			return Result{}, fmt.Errorf("upsert voucher %s: %w", in.Code, err)
		}
		logger.Info("voucher seeded", zap.String("code", in.Code), zap.Int("discount", in.Discount))
	}

	cart, err := c.Create(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("create cart: %w", err)
	}
	for _, line := range demoCart {
		if err := c.AddLine(ctx, cart.ID, res.ProductIDs[line.SKU], line.Quantity); err != nil {
			return Result{}, fmt.Errorf("add %s to cart: %w", line.SKU, err)
		}
	}
	res.CartID = cart.ID
	logger.Info("cart seeded", zap.String("cart_id", cart.ID), zap.String("user_id", userID))

	return res, nil
}
