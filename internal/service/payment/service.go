package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"order-engine/internal/db"
	"order-engine/internal/domain"
	"order-engine/internal/events"
	"order-engine/internal/logging"
	"order-engine/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gateway response codes the engine distinguishes.
const (
	CodeSuccess   = "00"
	CodeCancelled = "24"
)

type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeGatewayError Outcome = "gateway_error"
)

// Callback carries the two fields read from a gateway confirmation.
type Callback struct {
	TransactionRef string
	ResponseCode   string
}

type Result struct {
	Outcome Outcome
	OrderID string
	// ResponseCode is the raw gateway code for OutcomeGatewayError.
	ResponseCode string
	// Replayed is set when the callback repeated an already applied success.
	Replayed bool
}

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByTransactionRef(ctx context.Context, ref string) (*domain.Order, error)
	MarkPaid(ctx context.Context, id string, at time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, id string) (bool, error)
	SetTransactionRef(ctx context.Context, id, ref string) (string, error)
}

type outboxRepo interface {
	Insert(ctx context.Context, ev events.Event) error
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service maps payment gateway confirmations onto orders.
type Service struct {
	orders  orderRepo
	outbox  outboxRepo
	tx      transactor
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(orders orderRepo, outbox outboxRepo, tx transactor, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		orders:  orders,
		outbox:  outbox,
		tx:      tx,
		logger:  logging.OrNop(logger).Named("payment_service"),
		metrics: m,
		now:     time.Now,
	}
}

// Begin returns the transaction reference the gateway will echo back for
// orderID, assigning one on first use.
func (s *Service) Begin(ctx context.Context, orderID string) (string, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.Status == domain.OrderCancelled {
		return "", domain.Errorf(domain.KindIllegalTransition, "order %s is cancelled", o.ID)
	}
	if o.IsPaid {
		return "", domain.Errorf(domain.KindIllegalTransition, "order %s is already paid", o.ID)
	}
	if o.TransactionRef != "" {
		return o.TransactionRef, nil
	}

	ref, err := s.orders.SetTransactionRef(ctx, o.ID, strings.ReplaceAll(uuid.NewString(), "-", ""))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.Errorf(domain.KindOrderNotFound, "order %s not found", orderID)
		}
		return "", db.Classify("set transaction ref", err)
	}
	s.logger.Info("payment started", zap.String("order_id", o.ID), zap.String("txn_ref", ref))
	return ref, nil
}

// HandleCallback applies a gateway confirmation. Replays are harmless: a
// success is recorded once and a later failure never downgrades it.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) (Result, error) {
	res, err := s.handle(ctx, cb)
	if err != nil {
		s.metrics.PaymentCallback(metrics.Result(string(domain.KindOf(err))))
		s.logger.Warn("payment callback rejected",
			zap.String("txn_ref", cb.TransactionRef),
			zap.String("code", cb.ResponseCode),
			zap.Error(err))
		return Result{}, err
	}
	s.metrics.PaymentCallback(string(res.Outcome))
	s.logger.Info("payment callback",
		zap.String("order_id", res.OrderID),
		zap.String("outcome", string(res.Outcome)),
		zap.String("code", cb.ResponseCode),
		zap.Bool("replayed", res.Replayed))
	return res, nil
}

func (s *Service) handle(ctx context.Context, cb Callback) (Result, error) {
	ref := strings.TrimSpace(cb.TransactionRef)
	code := strings.TrimSpace(cb.ResponseCode)
	if ref == "" || code == "" {
		return Result{}, domain.Errorf(domain.KindMalformedCallback, "transaction reference and response code are required")
	}

	o, err := s.orders.GetByTransactionRef(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{}, domain.Errorf(domain.KindOrderNotFound, "no order for transaction %s", ref)
		}
		return Result{}, db.Classify("load order by transaction", err)
	}

	switch code {
	case CodeSuccess:
		return s.markPaid(ctx, o)
	case CodeCancelled:
		return Result{Outcome: OutcomeCancelled, OrderID: o.ID}, nil
	default:
		if _, err := s.orders.MarkPaymentFailed(ctx, o.ID); err != nil {
			return Result{}, db.Classify("mark payment failed", err)
		}
		return Result{Outcome: OutcomeGatewayError, OrderID: o.ID, ResponseCode: code}, nil
	}
}

func (s *Service) markPaid(ctx context.Context, o *domain.Order) (Result, error) {
	now := s.now()
	var changed bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if changed, err = s.orders.MarkPaid(ctx, o.ID, now); err != nil || !changed {
			return err
		}
		o.IsPaid = true
		o.PaymentStatus = domain.PaymentSuccess
		o.PaidAt = &now
		return s.outbox.Insert(ctx, events.ForOrder(events.OrderPaid, o, now))
	})
	if err != nil {
		return Result{}, db.Classify("mark order paid", err)
	}
	return Result{Outcome: OutcomeSuccess, OrderID: o.ID, Replayed: !changed}, nil
}

func (s *Service) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.KindOrderNotFound, "order %s not found", orderID)
		}
		return nil, db.Classify("load order", err)
	}
	return o, nil
}
