package pricing

import (
	"errors"
	"testing"

	"order-engine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestCalculate_FreeShippingAboveThreshold(t *testing.T) {
	calc := New(DefaultPolicy())
	got, err := calc.Calculate([]Line{{ProductID: "p1", UnitPrice: dec("60000000"), Quantity: 1}}, domain.ShippingAddress{}, 0)
	require.NoError(t, err)
	requireMoney(t, "60000000", got.Subtotal)
	requireMoney(t, "0", got.ShippingFee)
	requireMoney(t, "6000000", got.Tax)
	requireMoney(t, "0", got.Discount)
	requireMoney(t, "66000000", got.GrandTotal)
}

func TestCalculate_FlatShippingBelowThreshold(t *testing.T) {
	calc := New(DefaultPolicy())
	got, err := calc.Calculate([]Line{{ProductID: "p1", UnitPrice: dec("10000000"), Quantity: 2}}, domain.ShippingAddress{}, 0)
	require.NoError(t, err)
	requireMoney(t, "20000000", got.Subtotal)
	requireMoney(t, "800000", got.ShippingFee)
	requireMoney(t, "2000000", got.Tax)
	requireMoney(t, "22800000", got.GrandTotal)
}

func TestCalculate_VoucherAppliesToPreDiscountTotal(t *testing.T) {
	calc := New(DefaultPolicy())
	got, err := calc.Calculate([]Line{{ProductID: "p1", UnitPrice: dec("10000000"), Quantity: 2}}, domain.ShippingAddress{}, 10)
	require.NoError(t, err)
	requireMoney(t, "2280000", got.Discount)
	requireMoney(t, "20520000", got.GrandTotal)
}

func TestCalculate_ThresholdIsInclusive(t *testing.T) {
	calc := New(DefaultPolicy())
	got, err := calc.Calculate([]Line{{UnitPrice: dec("25000000"), Quantity: 2}}, domain.ShippingAddress{}, 0)
	require.NoError(t, err)
	requireMoney(t, "0", got.ShippingFee)
}

func TestCalculate_FiftyPercentVoucher(t *testing.T) {
	policy := Policy{VATRate: decimal.Zero, FreeShippingThreshold: decimal.Zero, FlatShippingFee: decimal.Zero}
	got, err := New(policy).Calculate([]Line{{UnitPrice: dec("1000000"), Quantity: 1}}, domain.ShippingAddress{}, 50)
	require.NoError(t, err)
	requireMoney(t, "500000", got.Discount)
	requireMoney(t, "500000", got.GrandTotal)
}

func TestCalculate_FullDiscountNeverNegative(t *testing.T) {
	calc := New(DefaultPolicy())
	got, err := calc.Calculate([]Line{{UnitPrice: dec("1.99"), Quantity: 3}}, domain.ShippingAddress{}, 100)
	require.NoError(t, err)
	requireMoney(t, "0", got.GrandTotal)
}

func TestCalculate_RoundsOnlyAtBoundary(t *testing.T) {
	calc := New(DefaultPolicy())
	// 0.333 * 3 = 0.999 subtotal; tax 0.0999; shipping 800000
	got, err := calc.Calculate([]Line{{UnitPrice: dec("0.333"), Quantity: 3}}, domain.ShippingAddress{}, 0)
	require.NoError(t, err)
	requireMoney(t, "1", got.Subtotal)
	requireMoney(t, "0.1", got.Tax)
	// 1.00 + 0.10 + 800000 from the rounded components
	requireMoney(t, "800001.1", got.GrandTotal)
}

func TestCalculate_BreakdownAddsUpAfterRounding(t *testing.T) {
	// tax 0.015 and discount 400000.0825 both round
	got, err := New(DefaultPolicy()).Calculate([]Line{{UnitPrice: dec("0.15"), Quantity: 1}}, domain.ShippingAddress{}, 50)
	require.NoError(t, err)
	requireMoney(t, "0.15", got.Subtotal)
	requireMoney(t, "0.02", got.Tax)
	requireMoney(t, "800000", got.ShippingFee)
	requireMoney(t, "400000.08", got.Discount)
	requireMoney(t, "400000.09", got.GrandTotal)

	sum := got.Subtotal.Add(got.Tax).Add(got.ShippingFee).Sub(got.Discount)
	require.True(t, sum.Equal(got.GrandTotal), "%s != %s", sum, got.GrandTotal)
}

func TestCalculate_NoVoucherNoDiscountAfterRounding(t *testing.T) {
	policy := Policy{VATRate: dec("0.10"), FreeShippingThreshold: decimal.Zero, FlatShippingFee: decimal.Zero}
	got, err := New(policy).Calculate([]Line{{UnitPrice: dec("0.0049"), Quantity: 1}}, domain.ShippingAddress{}, 0)
	require.NoError(t, err)
	requireMoney(t, "0", got.Discount)
	requireMoney(t, "0", got.GrandTotal)
}

func TestCalculate_EmptySelection(t *testing.T) {
	_, err := New(DefaultPolicy()).Calculate(nil, domain.ShippingAddress{}, 0)
	require.True(t, errors.Is(err, domain.ErrNoPurchasableItems), "got %v", err)
}

func TestCalculate_GrandTotalInvariant(t *testing.T) {
	calc := New(DefaultPolicy())
	prices := []string{"0", "0.01", "0.15", "0.0049", "19.99", "49999999.99", "50000000", "123456.789"}
	quantities := []int{0, 1, 2, 7}
	percents := []int{0, 1, 33, 99, 100}

	for _, p := range prices {
		for _, q := range quantities {
			for _, pct := range percents {
				got, err := calc.Calculate([]Line{{UnitPrice: dec(p), Quantity: q}, {UnitPrice: dec("3.5"), Quantity: 1}}, domain.ShippingAddress{}, pct)
				require.NoError(t, err)
				require.False(t, got.GrandTotal.IsNegative())

				want := got.Subtotal.Add(got.Tax).Add(got.ShippingFee).Sub(got.Discount)
				if want.IsNegative() {
					want = decimal.Zero
				}
				require.Truef(t, want.Equal(got.GrandTotal), "price=%s qty=%d pct=%d: %s vs %s", p, q, pct, want, got.GrandTotal)
			}
		}
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	calc := New(DefaultPolicy())
	lines := []Line{{UnitPrice: dec("1234.5678"), Quantity: 3}, {UnitPrice: dec("99.99"), Quantity: 1}}
	a, err := calc.Calculate(lines, domain.ShippingAddress{City: "Hanoi"}, 15)
	require.NoError(t, err)
	b, err := calc.Calculate(lines, domain.ShippingAddress{City: "Da Nang"}, 15)
	require.NoError(t, err)
	require.Equal(t, a.GrandTotal.String(), b.GrandTotal.String())
	require.Equal(t, a.Discount.String(), b.Discount.String())
}
