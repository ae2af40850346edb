package voucher

import (
	"context"
	"errors"
	"strings"
	"time"

	"order-engine/internal/db"
	"order-engine/internal/domain"
)

type voucherRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
}

// Resolver turns a voucher code into a discount percentage.
type Resolver struct {
	repo voucherRepo
	now  func() time.Time
}

func New(repo voucherRepo) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// Resolve returns 0 for a blank code, the voucher's percentage for a valid
// active voucher, and an InvalidVoucher error otherwise.
func (r *Resolver) Resolve(ctx context.Context, code string) (int, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, nil
	}

	v, err := r.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.Errorf(domain.KindInvalidVoucher, "voucher %q does not exist", code)
		}
		return 0, db.Classify("get voucher", err)
	}

	if v.Discount < domain.MinVoucherDiscount || v.Discount > domain.MaxVoucherDiscount {
		return 0, domain.Errorf(domain.KindInvalidVoucher, "voucher %q has discount %d outside [%d,%d]",
			code, v.Discount, domain.MinVoucherDiscount, domain.MaxVoucherDiscount)
	}
	if !v.ActiveAt(r.now()) {
		return 0, domain.Errorf(domain.KindInvalidVoucher, "voucher %q is not active", code)
	}
	return v.Discount, nil
}
