// Package events defines the order lifecycle event envelope and relays
// outbox records to Kafka.
package events

import (
	"time"

	"order-engine/internal/domain"

	"github.com/google/uuid"
)

const (
	OrderCreated   = "order.created"
	OrderShipped   = "order.shipped"
	OrderDelivered = "order.delivered"
	OrderCancelled = "order.cancelled"
	OrderPaid      = "order.paid"
)

// Event is the JSON envelope written to the outbox and published to Kafka.
type Event struct {
	EventID   string         `json:"event_id"`
	Type      string         `json:"type"`
	OrderID   string         `json:"order_id"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload"`
}

// ForOrder builds an event of typ describing o at now.
func ForOrder(typ string, o *domain.Order, now time.Time) Event {
	return Event{
		EventID:   uuid.NewString(),
		Type:      typ,
		OrderID:   o.ID,
		CreatedAt: now.UTC(),
		Payload: map[string]any{
			"user_id":        o.UserID,
			"status":         string(o.Status),
			"payment_status": string(o.PaymentStatus),
			"is_paid":        o.IsPaid,
			"grand_total":    o.Pricing.GrandTotal.StringFixed(2),
		},
	}
}

// ForTransition returns the event type emitted when an order reaches status.
func ForTransition(status domain.OrderStatus) string {
	switch status {
	case domain.OrderShipped:
		return OrderShipped
	case domain.OrderDelivered:
		return OrderDelivered
	case domain.OrderCancelled:
		return OrderCancelled
	}
	return ""
}
