package domain

import "time"

const (
	MinVoucherDiscount = 1
	MaxVoucherDiscount = 100
)

// Voucher is a named percentage discount code.
type Voucher struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Discount   int        `json:"discount"`
	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ActiveAt reports whether t falls inside the voucher's validity window.
// Unset bounds are open.
func (v Voucher) ActiveAt(t time.Time) bool {
	if v.ValidFrom != nil && t.Before(*v.ValidFrom) {
		return false
	}
	if v.ValidUntil != nil && t.After(*v.ValidUntil) {
		return false
	}
	return true
}
