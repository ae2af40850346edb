package pricing

import (
	"order-engine/internal/domain"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept at the boundary.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Policy holds the tax and shipping constants the calculator applies.
type Policy struct {
	VATRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// DefaultPolicy is a flat 10% VAT with free shipping from 50,000,000.
func DefaultPolicy() Policy {
	return Policy{
		VATRate:               decimal.RequireFromString("0.10"),
		FreeShippingThreshold: decimal.NewFromInt(50_000_000),
		FlatShippingFee:       decimal.NewFromInt(800_000),
	}
}

// Line is one priced input row: the authoritative unit price and quantity.
type Line struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Calculator prices a selection of line items under a fixed Policy.
// It holds no other state.
type Calculator struct {
	policy Policy
}

func New(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// Calculate computes subtotal, VAT, shipping, voucher discount and grand
// total, in that order. Grand total is derived from the rounded components.
// The shipping address is accepted for zone-based fees
// and currently ignored. voucherPercent 0 means no voucher.
func (c *Calculator) Calculate(lines []Line, _ domain.ShippingAddress, voucherPercent int) (domain.PriceBreakdown, error) {
	if len(lines) == 0 {
		return domain.PriceBreakdown{}, domain.Errorf(domain.KindNoPurchasableItems, "no purchasable items")
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	tax := subtotal.Mul(c.policy.VATRate)

	shipping := c.policy.FlatShippingFee
	if subtotal.GreaterThanOrEqual(c.policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	discount := decimal.Zero
	if voucherPercent > 0 {
		preDiscount := subtotal.Add(tax).Add(shipping)
		discount = preDiscount.Mul(decimal.NewFromInt(int64(voucherPercent))).Div(hundred)
	}

	// Components are rounded first so the stored breakdown adds up exactly.
	out := domain.PriceBreakdown{
		Subtotal:    subtotal.Round(MoneyPlaces),
		Tax:         tax.Round(MoneyPlaces),
		ShippingFee: shipping.Round(MoneyPlaces),
		Discount:    discount.Round(MoneyPlaces),
	}
	out.GrandTotal = out.Subtotal.Add(out.Tax).Add(out.ShippingFee).Sub(out.Discount)
	if out.GrandTotal.IsNegative() {
		out.GrandTotal = decimal.Zero
	}
	return out, nil
}
