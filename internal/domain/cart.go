package domain

import "time"

// Cart is a user's mutable pre-purchase collection. Version increases on
// every write so order creation can trim it with a compare-and-swap.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Lines     []CartLine `json:"lineItems,omitempty"`
}

type CartLine struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cartId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// LinesFor returns the cart lines whose product id is in productIDs, in cart
// order.
func (c Cart) LinesFor(productIDs []string) []CartLine {
	want := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		want[id] = struct{}{}
	}
	var out []CartLine
	for _, line := range c.Lines {
		if _, ok := want[line.ProductID]; ok {
			out = append(out, line)
		}
	}
	return out
}
