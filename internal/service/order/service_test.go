package order

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"order-engine/internal/domain"
	"order-engine/internal/events"
	"order-engine/internal/service/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	laptopID = "11111111-1111-1111-1111-111111111111"
	mouseID  = "22222222-2222-2222-2222-222222222222"
	ghostID  = "33333333-3333-3333-3333-333333333333"
	cartID   = "cccccccc-cccc-cccc-cccc-cccccccccccc"
	userID   = "user-1"
)

type stubVouchers struct {
	percent int
	err     error
	last    string
}

func (s *stubVouchers) Resolve(_ context.Context, code string) (int, error) {
	s.last = code
	if code == "" {
		return 0, nil
	}
	return s.percent, s.err
}

func newFixture(t *testing.T) (*Service, *memStore, *stubVouchers) {
	t.Helper()
	store := newMemStore()
	store.products[laptopID] = domain.Product{ID: laptopID, Name: "Laptop", Price: decimal.NewFromInt(12_000_000), PromoPrice: decimal.NewNullDecimal(decimal.NewFromInt(10_000_000))}
	store.products[mouseID] = domain.Product{ID: mouseID, Name: "Mouse", Price: decimal.NewFromInt(500_000)}
	store.carts[cartID] = &domain.Cart{
		ID:     cartID,
		UserID: userID,
		Lines: []domain.CartLine{
			{ProductID: laptopID, Quantity: 2},
			{ProductID: mouseID, Quantity: 1},
		},
	}
	vouchers := &stubVouchers{}
	svc := New(Deps{
		Carts:      memCarts{store},
		Products:   memProducts{store},
		Orders:     memOrders{store},
		Outbox:     memOutbox{store},
		Vouchers:   vouchers,
		Calculator: pricing.New(pricing.DefaultPolicy()),
		Tx:         store,
	})
	return svc, store, vouchers
}

func input(productIDs ...string) CreateInput {
	return CreateInput{
		UserID:          userID,
		CartID:          cartID,
		ProductIDs:      productIDs,
		ShippingAddress: domain.ShippingAddress{Address: "1 Le Loi", City: "Hue", Country: "VN"},
		Contact:         domain.Contact{Name: "An", Phone: "0900", Email: "an@example.com"},
	}
}

func TestCreate_PricesSnapshotsAndTrimsCart(t *testing.T) {
	svc, store, _ := newFixture(t)

	o, err := svc.Create(context.Background(), input(laptopID))
	require.NoError(t, err)
	require.Equal(t, domain.OrderPending, o.Status)
	require.False(t, o.IsPaid)
	require.Len(t, o.Items, 1)
	require.Equal(t, 2, o.Items[0].Quantity)
	require.Equal(t, "10000000", o.Items[0].UnitPrice.String())
	require.Equal(t, "Laptop", o.Items[0].ProductName)

	// 20,000,000 subtotal: below the threshold, so flat shipping applies
	require.Equal(t, "20000000", o.Pricing.Subtotal.String())
	require.Equal(t, "2000000", o.Pricing.Tax.String())
	require.Equal(t, "800000", o.Pricing.ShippingFee.String())
	require.Equal(t, "22800000", o.Pricing.GrandTotal.String())
	require.Equal(t, "Hue", o.ShippingAddress.City)

	cart := store.cart(cartID)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, mouseID, cart.Lines[0].ProductID)
	require.Equal(t, []string{events.OrderCreated}, store.eventTypes())
}

func TestCreate_AppliesVoucher(t *testing.T) {
	svc, _, vouchers := newFixture(t)
	vouchers.percent = 10

	in := input(laptopID)
	in.VoucherCode = " SUMMER10 "
	o, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "2280000", o.Pricing.Discount.String())
	require.Equal(t, "20520000", o.Pricing.GrandTotal.String())
	require.Equal(t, "SUMMER10", o.VoucherCode)
	require.Equal(t, 10, o.VoucherPercent)
}

func TestCreate_Errors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*memStore, *stubVouchers)
		in    CreateInput
		want  error
	}{
		{name: "blank user", in: CreateInput{CartID: cartID, ProductIDs: []string{laptopID}}, want: domain.ErrInvalidInput},
		{name: "unknown cart", in: CreateInput{UserID: userID, CartID: "nope", ProductIDs: []string{laptopID}}, want: domain.ErrCartNotFound},
		{name: "foreign cart", in: CreateInput{UserID: "user-2", CartID: cartID, ProductIDs: []string{laptopID}}, want: domain.ErrCartNotFound},
		{name: "nothing selected", in: input(), want: domain.ErrNoEligibleItems},
		{name: "ids not in cart", in: input(ghostID), want: domain.ErrNoEligibleItems},
		{
			name: "product vanished",
			setup: func(m *memStore, _ *stubVouchers) {
				delete(m.products, mouseID)
			},
			in:   input(laptopID, mouseID),
			want: domain.ErrProductNotFound,
		},
		{
			name: "invalid voucher",
			setup: func(_ *memStore, v *stubVouchers) {
				v.err = domain.Errorf(domain.KindInvalidVoucher, "nope")
			},
			in:   CreateInput{UserID: userID, CartID: cartID, ProductIDs: []string{laptopID}, VoucherCode: "BAD"},
			want: domain.ErrInvalidVoucher,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, vouchers := newFixture(t)
			if tc.setup != nil {
				tc.setup(store, vouchers)
			}
			_, err := svc.Create(context.Background(), tc.in)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
			require.Zero(t, store.orderCount())
			require.Len(t, store.cart(cartID).Lines, 2)
			require.Empty(t, store.eventTypes())
		})
	}
}

func TestCreate_ProductNotFoundNamesID(t *testing.T) {
	svc, store, _ := newFixture(t)
	delete(store.products, mouseID)

	_, err := svc.Create(context.Background(), input(laptopID, mouseID))
	require.ErrorContains(t, err, mouseID)
}

func TestCreate_RollsBackWhenLaterStepFails(t *testing.T) {
	svc, store, _ := newFixture(t)
	store.outboxErr = errors.New("disk full")

	_, err := svc.Create(context.Background(), input(laptopID))
	require.Error(t, err)
	require.Zero(t, store.orderCount())
	require.Len(t, store.cart(cartID).Lines, 2)
}

func TestCreate_RetriesConflictOnce(t *testing.T) {
	svc, store, _ := newFixture(t)
	store.forceConflicts = 1

	o, err := svc.Create(context.Background(), input(laptopID))
	require.NoError(t, err)
	require.NotEmpty(t, o.ID)
	require.Equal(t, 1, store.orderCount())
}

func TestCreate_PersistentConflictSurfaces(t *testing.T) {
	svc, store, _ := newFixture(t)
	store.forceConflicts = 2

	_, err := svc.Create(context.Background(), input(laptopID))
	require.ErrorIs(t, err, domain.ErrStorageConflict)
	require.Zero(t, store.orderCount())
}

func TestCreate_ConcurrentCheckoutOfSameItem(t *testing.T) {
	svc, store, _ := newFixture(t)

	// hold both callers after their first cart read so they race on the trim
	var reads sync.WaitGroup
	reads.Add(2)
	var n atomic.Int32
	store.afterCartRead = func() {
		if n.Add(1) <= 2 {
			reads.Done()
			reads.Wait()
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), input(mouseID))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, errors.Is(err, domain.ErrNoEligibleItems) || errors.Is(err, domain.ErrStorageConflict), "got %v", err)
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, store.orderCount())

	cart := store.cart(cartID)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, laptopID, cart.Lines[0].ProductID)
}
