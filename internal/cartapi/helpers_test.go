package cartapi

import "github.com/shopspring/decimal"

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
