package cart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateSummaryEmptyCart(t *testing.T) {
	t.Parallel()

	got := CalculateSummary(Snapshot{}, money("15.00"))
	if !got.Subtotal.IsZero() || !got.ShippingFee.IsZero() || !got.Total.IsZero() {
		t.Fatalf("expected zero money on empty cart, got %+v", got)
	}
	if got.SelectedCount != 0 || got.TotalCount != 0 {
		t.Fatalf("expected zero counts, got %+v", got)
	}
}

func TestCalculateSummarySelectedLinesOnly(t *testing.T) {
	t.Parallel()

	snap := Snapshot{Lines: []Line{
		{ProductID: 1, Quantity: 2, UnitPrice: money("10"), Selected: true, Available: true},
		{ProductID: 2, Quantity: 1, UnitPrice: money("5"), Selected: false, Available: true},
	}}
	snap.recompute()

	fee := money("15.00")
	got := CalculateSummary(snap, fee)
	if !got.Subtotal.Equal(money("20")) {
		t.Fatalf("expected subtotal 20, got %s", got.Subtotal)
	}
	if !got.ShippingFee.Equal(fee) {
		t.Fatalf("expected fee %s, got %s", fee, got.ShippingFee)
	}
	if !got.Total.Equal(money("35")) {
		t.Fatalf("expected total 35, got %s", got.Total)
	}
	if got.SelectedCount != 1 || got.TotalCount != 2 {
		t.Fatalf("unexpected counts: %+v", got)
	}
}

func TestCalculateSummaryIgnoresAvailability(t *testing.T) {
	t.Parallel()

	snap := Snapshot{Lines: []Line{
		{ProductID: 7, Quantity: 3, UnitPrice: money("1.50"), Selected: true, Available: false},
	}}
	got := CalculateSummary(snap, money("2"))
	if !got.Subtotal.Equal(money("4.5")) {
		t.Fatalf("expected unavailable selected line to count, got %s", got.Subtotal)
	}
}

func TestCalculateSummaryNoFeeForZeroPricedLines(t *testing.T) {
	t.Parallel()

	snap := Snapshot{Lines: []Line{
		{ProductID: 9, Quantity: 1, UnitPrice: decimal.Zero, Selected: true, Available: true, Local: true},
	}}
	got := CalculateSummary(snap, money("15"))
	if !got.ShippingFee.IsZero() || !got.Total.IsZero() {
		t.Fatalf("expected no fee while subtotal is zero, got %+v", got)
	}
	if got.SelectedCount != 1 {
		t.Fatalf("expected selected count 1, got %d", got.SelectedCount)
	}
}
