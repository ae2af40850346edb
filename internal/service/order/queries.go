package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"order-engine/internal/db"
	"order-engine/internal/domain"
	orderrepo "order-engine/internal/repository/order"
)

// Range limits a listing to orders created within a trailing window.
type Range string

const (
	RangeAll     Range = ""
	RangeDaily   Range = "daily"
	RangeWeekly  Range = "weekly"
	RangeMonthly Range = "monthly"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListFilter selects orders for the admin listing.
type ListFilter struct {
	Status domain.OrderStatus
	Range  Range
	Limit  int
	Offset int
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.KindOrderNotFound, "order %s not found", orderID)
		}
		return nil, db.Classify("load order", err)
	}
	return o, nil
}

// ListByUser returns a user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, "user id is required")
	}
	orders, err := s.orders.List(ctx, orderrepo.ListQuery{UserID: userID})
	if err != nil {
		return nil, db.Classify("list user orders", err)
	}
	return orders, nil
}

// List returns orders matching f, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Errorf(domain.KindInvalidInput, "unknown status %q", f.Status)
	}
	if f.Offset < 0 {
		return nil, domain.Errorf(domain.KindInvalidInput, "offset must not be negative")
	}
	since, err := f.Range.since(s.now())
	if err != nil {
		return nil, err
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	orders, err := s.orders.List(ctx, orderrepo.ListQuery{
		Status:       f.Status,
		CreatedAfter: since,
		Limit:        limit,
		Offset:       f.Offset,
	})
	if err != nil {
		return nil, db.Classify("list orders", err)
	}
	return orders, nil
}

func (r Range) since(now time.Time) (*time.Time, error) {
	var t time.Time
	switch r {
	case RangeAll:
		return nil, nil
	case RangeDaily:
		t = now.AddDate(0, 0, -1)
	case RangeWeekly:
		t = now.AddDate(0, 0, -7)
	case RangeMonthly:
		t = now.AddDate(0, -1, 0)
	default:
		return nil, domain.Errorf(domain.KindInvalidInput, "unknown range %q, want daily, weekly or monthly", string(r))
	}
	return &t, nil
}
