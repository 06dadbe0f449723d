package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is one product's presence in the cart.
type Line struct {
	ID          string          `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Available   bool            `json:"available"`
	Selected    bool            `json:"selected"`
	// Local marks a line created offline that the server has not confirmed yet.
	Local bool `json:"local,omitempty"`
}

// normalize recomputes the derived subtotal. It is the only writer of Subtotal.
func (l *Line) normalize() {
	l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// RemoteLine is a cart line as reported by the remote cart API.
type RemoteLine struct {
	ID          string
	ProductID   int64
	ProductName string
	ImageURL    string
	Quantity    int
	UnitPrice   decimal.Decimal
	Available   bool
}

// toLine converts a server line into a selected, normalized local line.
func (r RemoteLine) toLine() Line {
	id := r.ID
	if id == "" {
		id = fmt.Sprintf("product-%d", r.ProductID)
	}
	line := Line{
		ID:          id,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		ImageURL:    r.ImageURL,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Available:   r.Available,
		Selected:    true,
	}
	line.normalize()
	return line
}
