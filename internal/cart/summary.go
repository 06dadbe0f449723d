package cart

import "github.com/shopspring/decimal"

// OrderSummary is a pure projection of a snapshot; it is never persisted.
type OrderSummary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	Total         decimal.Decimal `json:"total"`
	SelectedCount int             `json:"selectedCount"`
	TotalCount    int             `json:"totalCount"`
}

// CalculateSummary totals the selected lines. Availability does not affect the subtotal;
// the flat fee only applies when something is being paid for.
func CalculateSummary(s Snapshot, shippingFee decimal.Decimal) OrderSummary {
	summary := OrderSummary{
		Subtotal:    decimal.Zero,
		ShippingFee: decimal.Zero,
		TotalCount:  len(s.Lines),
	}
	for _, line := range s.Lines {
		if !line.Selected {
			continue
		}
		summary.SelectedCount++
		summary.Subtotal = summary.Subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if summary.Subtotal.IsPositive() {
		summary.ShippingFee = shippingFee
	}
	summary.Total = summary.Subtotal.Add(summary.ShippingFee)
	return summary
}
