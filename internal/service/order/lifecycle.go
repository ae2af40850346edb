package order

import (
	"context"
	"errors"

	"order-engine/internal/db"
	"order-engine/internal/domain"
	"order-engine/internal/events"
	"order-engine/internal/metrics"

	"go.uber.org/zap"
)

func (s *Service) Ship(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.ActionShip)
}

func (s *Service) Deliver(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.ActionDeliver)
}

func (s *Service) Cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.ActionCancel)
}

// transition applies action with a conditional status update. If another
// writer moved the order first, the action is re-evaluated once against the
// fresh status.
func (s *Service) transition(ctx context.Context, orderID string, action domain.Action) (*domain.Order, error) {
	o, err := s.applyTransition(ctx, orderID, action)
	if domain.KindOf(err) == domain.KindStorageConflict {
		s.logger.Info("order changed concurrently, retrying",
			zap.String("order_id", orderID),
			zap.String("action", string(action)))
		o, err = s.applyTransition(ctx, orderID, action)
	}

	s.metrics.Transition(string(action), metrics.Result(string(domain.KindOf(err))))
	if err != nil {
		s.logger.Info("order transition rejected",
			zap.String("order_id", orderID),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, err
	}
	s.logger.Info("order transitioned",
		zap.String("order_id", o.ID),
		zap.String("action", string(action)),
		zap.String("status", string(o.Status)))
	return o, nil
}

func (s *Service) applyTransition(ctx context.Context, orderID string, action domain.Action) (*domain.Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	next, ok := from.Next(action)
	if !ok {
		return nil, domain.Errorf(domain.KindIllegalTransition, "cannot %s order %s in status %s", action, o.ID, from)
	}

	o.Status = next
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.UpdateStatus(ctx, o.ID, from, next); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, events.ForOrder(events.ForTransition(next), o, s.now()))
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.Wrap(domain.KindStorageConflict, err, "order "+o.ID+" is no longer "+string(from))
		}
		return nil, db.Classify("update order status", err)
	}
	o.UpdatedAt = s.now()
	return o, nil
}
