package httpserver

import (
	"time"

	"order-engine/internal/domain"

	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	UserID          string                 `json:"userId"`
	CartID          string                 `json:"cartId"`
	ProductIDs      []string               `json:"productIds"`
	ShippingAddress shippingAddressPayload `json:"shippingAddress"`
	Contact         contactPayload         `json:"contact"`
	VoucherCode     string                 `json:"voucherCode"`
}

type shippingAddressPayload struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type contactPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type priceBreakdownResponse struct {
	Subtotal    string `json:"subtotal"`
	Tax         string `json:"tax"`
	ShippingFee string `json:"shippingFee"`
	Discount    string `json:"discount"`
	GrandTotal  string `json:"grandTotal"`
}

type orderItemResponse struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
}

type orderResponse struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"userId"`
	CartID          string                 `json:"cartId"`
	Items           []orderItemResponse    `json:"items"`
	Pricing         priceBreakdownResponse `json:"pricing"`
	VoucherCode     string                 `json:"voucherCode,omitempty"`
	VoucherPercent  int                    `json:"voucherPercent,omitempty"`
	Status          string                 `json:"status"`
	PaymentStatus   string                 `json:"paymentStatus,omitempty"`
	IsPaid          bool                   `json:"isPaid"`
	TransactionRef  string                 `json:"transactionRef,omitempty"`
	PaidAt          *time.Time             `json:"paidAt,omitempty"`
	Contact         contactPayload         `json:"contact"`
	ShippingAddress shippingAddressPayload `json:"shippingAddress"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type orderListResponse struct {
	Count   int             `json:"count"`
	Results []orderResponse `json:"results"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
		})
	}
	return orderResponse{
		ID:     o.ID,
		UserID: o.UserID,
		CartID: o.CartID,
		Items:  items,
		Pricing: priceBreakdownResponse{
			Subtotal:    money(o.Pricing.Subtotal),
			Tax:         money(o.Pricing.Tax),
			ShippingFee: money(o.Pricing.ShippingFee),
			Discount:    money(o.Pricing.Discount),
			GrandTotal:  money(o.Pricing.GrandTotal),
		},
		VoucherCode:    o.VoucherCode,
		VoucherPercent: o.VoucherPercent,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		IsPaid:         o.IsPaid,
		TransactionRef: o.TransactionRef,
		PaidAt:         o.PaidAt,
		Contact: contactPayload{
			Name:  o.Contact.Name,
			Phone: o.Contact.Phone,
			Email: o.Contact.Email,
		},
		ShippingAddress: shippingAddressPayload{
			Address: o.ShippingAddress.Address,
			City:    o.ShippingAddress.City,
			Country: o.ShippingAddress.Country,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func toOrderList(orders []domain.Order) orderListResponse {
	out := orderListResponse{Count: len(orders), Results: make([]orderResponse, 0, len(orders))}
	for _, o := range orders {
		out.Results = append(out.Results, toOrderResponse(o))
	}
	return out
}
