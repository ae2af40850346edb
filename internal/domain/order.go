package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no action can move an order out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Action is an administrative lifecycle command.
type Action string

const (
	ActionShip    Action = "ship"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
)

type transition struct {
	from   OrderStatus
	action Action
}

var transitions = map[transition]OrderStatus{
	{OrderPending, ActionShip}:    OrderShipped,
	{OrderPending, ActionCancel}:  OrderCancelled,
	{OrderShipped, ActionDeliver}: OrderDelivered,
	{OrderShipped, ActionCancel}:  OrderCancelled,
}

// Next returns the status reached by applying a to s, and false when the
// edge does not exist.
func (s OrderStatus) Next(a Action) (OrderStatus, bool) {
	next, ok := transitions[transition{s, a}]
	return next, ok
}

type PaymentStatus string

const (
	PaymentUnset   PaymentStatus = ""
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// PriceBreakdown is the canonical money summary of an order. Every field is
// rounded to two fractional digits.
type PriceBreakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Discount    decimal.Decimal `json:"discount"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
}

type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// OrderItem snapshots a purchased product at order time.
type OrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	CartID          string          `json:"cartId"`
	Items           []OrderItem     `json:"items"`
	Pricing         PriceBreakdown  `json:"pricing"`
	VoucherCode     string          `json:"voucherCode,omitempty"`
	VoucherPercent  int             `json:"voucherPercent,omitempty"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	IsPaid          bool            `json:"isPaid"`
	TransactionRef  string          `json:"transactionRef,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	Contact         Contact         `json:"contact"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
