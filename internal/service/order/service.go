package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"order-engine/internal/db"
	"order-engine/internal/domain"
	"order-engine/internal/events"
	"order-engine/internal/lock"
	"order-engine/internal/logging"
	"order-engine/internal/metrics"
	orderrepo "order-engine/internal/repository/order"
	"order-engine/internal/service/pricing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type cartRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	RemoveLines(ctx context.Context, cartID string, productIDs []string, expectedVersion int64) error
}

type productRepo interface {
	FindMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type orderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
	List(ctx context.Context, q orderrepo.ListQuery) ([]domain.Order, error)
}

type outboxRepo interface {
	Insert(ctx context.Context, ev events.Event) error
}

type voucherResolver interface {
	Resolve(ctx context.Context, code string) (int, error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Deps are the collaborators of Service. Locker, Logger and Metrics are
// optional.
type Deps struct {
	Carts      cartRepo
	Products   productRepo
	Orders     orderRepo
	Outbox     outboxRepo
	Vouchers   voucherResolver
	Calculator *pricing.Calculator
	Tx         transactor
	Locker     lock.Locker
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Service creates orders from carts and drives their delivery lifecycle.
type Service struct {
	carts    cartRepo
	products productRepo
	orders   orderRepo
	outbox   outboxRepo
	vouchers voucherResolver
	calc     *pricing.Calculator
	tx       transactor
	locker   lock.Locker
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(d Deps) *Service {
	locker := d.Locker
	if locker == nil {
		locker = lock.Noop{}
	}
	calc := d.Calculator
	if calc == nil {
		calc = pricing.New(pricing.DefaultPolicy())
	}
	return &Service{
		carts:    d.Carts,
		products: d.Products,
		orders:   d.Orders,
		outbox:   d.Outbox,
		vouchers: d.Vouchers,
		calc:     calc,
		tx:       d.Tx,
		locker:   locker,
		logger:   logging.OrNop(d.Logger).Named("order_service"),
		metrics:  d.Metrics,
		now:      time.Now,
	}
}

// CreateInput is a request to turn part of a cart into an order.
type CreateInput struct {
	UserID          string
	CartID          string
	ShippingAddress domain.ShippingAddress
	// ProductIDs selects which cart lines to purchase.
	ProductIDs  []string
	Contact     domain.Contact
	VoucherCode string
}

// Create prices the selected cart lines, persists a Pending order and removes
// the purchased lines from the cart. The order insert and the cart trim
// commit together or not at all. A concurrent change to the cart is retried
// once against fresh state.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	o, err := s.create(ctx, in)
	s.metrics.OrderCreated(metrics.Result(string(domain.KindOf(err))))
	if err != nil {
		s.logger.Info("create order failed",
			zap.String("user_id", in.UserID),
			zap.String("cart_id", in.CartID),
			zap.Error(err))
		return nil, err
	}
	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("cart_id", o.CartID),
		zap.String("grand_total", o.Pricing.GrandTotal.StringFixed(2)))
	return o, nil
}

func (s *Service) create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, "user id is required")
	}
	if strings.TrimSpace(in.CartID) == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, "cart id is required")
	}

	release, err := s.locker.Acquire(ctx, in.CartID)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return nil, domain.Wrap(domain.KindStorageConflict, err, "cart is being checked out concurrently")
		}
		return nil, domain.Wrap(domain.KindStorageUnavailable, err, "acquire cart lease")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release cart lease", zap.String("cart_id", in.CartID), zap.Error(err))
		}
	}()

	o, err := s.attemptCreate(ctx, in)
	if domain.KindOf(err) == domain.KindStorageConflict {
		s.logger.Info("cart changed during checkout, retrying", zap.String("cart_id", in.CartID))
		o, err = s.attemptCreate(ctx, in)
	}
	return o, err
}

func (s *Service) attemptCreate(ctx context.Context, in CreateInput) (*domain.Order, error) {
	cart, err := s.carts.GetByID(ctx, in.CartID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.KindCartNotFound, "cart %s not found", in.CartID)
		}
		return nil, db.Classify("load cart", err)
	}
	if cart.UserID != in.UserID {
		return nil, domain.Errorf(domain.KindCartNotFound, "cart %s not found", in.CartID)
	}

	selected := cart.LinesFor(in.ProductIDs)
	if len(selected) == 0 {
		return nil, domain.Errorf(domain.KindNoEligibleItems, "none of the requested products are in cart %s", cart.ID)
	}

	productIDs := make([]string, len(selected))
	for i, line := range selected {
		productIDs[i] = line.ProductID
	}
	products, err := s.products.FindMany(ctx, productIDs)
	if err != nil {
		return nil, db.Classify("load products", err)
	}

	items := make([]domain.OrderItem, 0, len(selected))
	lines := make([]pricing.Line, 0, len(selected))
	for _, line := range selected {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, domain.Errorf(domain.KindProductNotFound, "product %s not found", line.ProductID)
		}
		price := p.EffectivePrice()
		items = append(items, domain.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			UnitPrice:   price,
		})
		lines = append(lines, pricing.Line{ProductID: p.ID, UnitPrice: price, Quantity: line.Quantity})
	}

	percent, err := s.vouchers.Resolve(ctx, in.VoucherCode)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.calc.Calculate(lines, in.ShippingAddress, percent)
	if err != nil {
		return nil, err
	}

	o := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		CartID:          cart.ID,
		Items:           items,
		Pricing:         breakdown,
		Status:          domain.OrderPending,
		PaymentStatus:   domain.PaymentUnset,
		Contact:         in.Contact,
		ShippingAddress: in.ShippingAddress,
	}
	if percent > 0 {
		o.VoucherCode = strings.TrimSpace(in.VoucherCode)
		o.VoucherPercent = percent
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, o); err != nil {
			return err
		}
		if err := s.outbox.Insert(ctx, events.ForOrder(events.OrderCreated, o, s.now())); err != nil {
			return err
		}
		return s.carts.RemoveLines(ctx, cart.ID, productIDs, cart.Version)
	})
	if err != nil {
		return nil, db.Classify("persist order", err)
	}
	return o, nil
}
