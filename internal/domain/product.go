package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         string              `json:"id"`
	SKU        string              `json:"sku"`
	Name       string              `json:"name"`
	Price      decimal.Decimal     `json:"price"`
	PromoPrice decimal.NullDecimal `json:"promoPrice"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// EffectivePrice is the authoritative unit price at order time: the
// promotional price when one is set, otherwise the base price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.PromoPrice.Valid && p.PromoPrice.Decimal.IsPositive() {
		return p.PromoPrice.Decimal
	}
	return p.Price
}
