package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-engine/internal/domain"
	"order-engine/internal/events"

	"github.com/stretchr/testify/require"
)

type stubOrders struct {
	orders      map[string]*domain.Order
	getErr      error
	markPaidN   int
	markFailedN int
	lastRef     string
}

func newStubOrders(orders ...*domain.Order) *stubOrders {
	s := &stubOrders{orders: map[string]*domain.Order{}}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *stubOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubOrders) GetByTransactionRef(_ context.Context, ref string) (*domain.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, o := range s.orders {
		if o.TransactionRef == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrders) MarkPaid(_ context.Context, id string, at time.Time) (bool, error) {
	s.markPaidN++
	o := s.orders[id]
	if o.IsPaid {
		return false, nil
	}
	o.IsPaid = true
	o.PaymentStatus = domain.PaymentSuccess
	o.PaidAt = &at
	return true, nil
}

func (s *stubOrders) MarkPaymentFailed(_ context.Context, id string) (bool, error) {
	s.markFailedN++
	o := s.orders[id]
	if o.IsPaid || o.PaymentStatus == domain.PaymentSuccess {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentFailed
	return true, nil
}

func (s *stubOrders) SetTransactionRef(_ context.Context, id, ref string) (string, error) {
	s.lastRef = ref
	o, ok := s.orders[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	if o.TransactionRef == "" {
		o.TransactionRef = ref
	}
	return o.TransactionRef, nil
}

type stubOutbox struct {
	events []events.Event
}

func (s *stubOutbox) Insert(_ context.Context, ev events.Event) error {
	s.events = append(s.events, ev)
	return nil
}

type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func pendingOrder() *domain.Order {
	return &domain.Order{ID: "o-1", Status: domain.OrderPending, TransactionRef: "ref-1"}
}

func TestHandleCallback_SuccessIsIdempotent(t *testing.T) {
	orders := newStubOrders(pendingOrder())
	outbox := &stubOutbox{}
	svc := New(orders, outbox, directTx{}, nil, nil)

	res, err := svc.HandleCallback(context.Background(), Callback{TransactionRef: "ref-1", ResponseCode: CodeSuccess})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, "o-1", res.OrderID)
	require.False(t, res.Replayed)

	res, err = svc.HandleCallback(context.Background(), Callback{TransactionRef: "ref-1", ResponseCode: CodeSuccess})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.True(t, res.Replayed)

	o := orders.orders["o-1"]
	require.True(t, o.IsPaid)
	require.Equal(t, domain.PaymentSuccess, o.PaymentStatus)
	require.Len(t, outbox.events, 1)
	require.Equal(t, events.OrderPaid, outbox.events[0].Type)
}

func TestHandleCallback_CancelledLeavesOrderUntouched(t *testing.T) {
	orders := newStubOrders(pendingOrder())
	svc := New(orders, &stubOutbox{}, directTx{}, nil, nil)

	res, err := svc.HandleCallback(context.Background(), Callback{TransactionRef: "ref-1", ResponseCode: CodeCancelled})
	require.NoError(t, err)
	require.Equal(t, OutcomeCancelled, res.Outcome)
	require.Zero(t, orders.markPaidN)
	require.Zero(t, orders.markFailedN)
	require.Equal(t, domain.PaymentUnset, orders.orders["o-1"].PaymentStatus)
}

func TestHandleCallback_GatewayErrorMarksFailed(t *testing.T) {
	orders := newStubOrders(pendingOrder())
	svc := New(orders, &stubOutbox{}, directTx{}, nil, nil)

	res, err := svc.HandleCallback(context.Background(), Callback{TransactionRef: "ref-1", ResponseCode: "51"})
	require.NoError(t, err)
	require.Equal(t, OutcomeGatewayError, res.Outcome)
	require.Equal(t, "51", res.ResponseCode)
	require.Equal(t, domain.PaymentFailed, orders.orders["o-1"].PaymentStatus)
	require.False(t, orders.orders["o-1"].IsPaid)
}

func TestHandleCallback_FailureAfterSuccessDoesNotDowngrade(t *testing.T) {
	orders := newStubOrders(pendingOrder())
	svc := New(orders, &stubOutbox{}, directTx{}, nil, nil)

	_, err := svc.HandleCallback(context.Background(), Callback{TransactionRef: "ref-1", ResponseCode: CodeSuccess})
	require.NoError(t, err)
	res, err := svc.HandleCallback(context.Background(), Callback{TransactionRef: "ref-1", ResponseCode: "99"})
	require.NoError(t, err)
	require.Equal(t, OutcomeGatewayError, res.Outcome)
	require.Equal(t, domain.PaymentSuccess, orders.orders["o-1"].PaymentStatus)
	require.True(t, orders.orders["o-1"].IsPaid)
}

func TestHandleCallback_Errors(t *testing.T) {
	svc := New(newStubOrders(pendingOrder()), &stubOutbox{}, directTx{}, nil, nil)

	for _, cb := range []Callback{{}, {TransactionRef: "ref-1"}, {ResponseCode: "00"}, {TransactionRef: " ", ResponseCode: "00"}} {
		_, err := svc.HandleCallback(context.Background(), cb)
		require.True(t, errors.Is(err, domain.ErrMalformedCallback), "callback %+v: %v", cb, err)
	}

	for _, code := range []string{CodeSuccess, CodeCancelled, "07"} {
		_, err := svc.HandleCallback(context.Background(), Callback{TransactionRef: "unknown", ResponseCode: code})
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
	}
}

func TestHandleCallback_StorageUnavailable(t *testing.T) {
	orders := newStubOrders(pendingOrder())
	orders.getErr = context.DeadlineExceeded
	svc := New(orders, &stubOutbox{}, directTx{}, nil, nil)

	_, err := svc.HandleCallback(context.Background(), Callback{TransactionRef: "ref-1", ResponseCode: CodeSuccess})
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestBegin(t *testing.T) {
	fresh := &domain.Order{ID: "o-2", Status: domain.OrderPending}
	cancelled := &domain.Order{ID: "o-3", Status: domain.OrderCancelled}
	paid := &domain.Order{ID: "o-4", Status: domain.OrderShipped, IsPaid: true}
	orders := newStubOrders(pendingOrder(), fresh, cancelled, paid)
	svc := New(orders, &stubOutbox{}, directTx{}, nil, nil)
	ctx := context.Background()

	ref, err := svc.Begin(ctx, "o-1")
	require.NoError(t, err)
	require.Equal(t, "ref-1", ref)

	ref, err = svc.Begin(ctx, "o-2")
	require.NoError(t, err)
	require.Len(t, ref, 32)
	again, err := svc.Begin(ctx, "o-2")
	require.NoError(t, err)
	require.Equal(t, ref, again)

	_, err = svc.Begin(ctx, "o-3")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	_, err = svc.Begin(ctx, "o-4")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	_, err = svc.Begin(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}
