package controllers

import "github.com/angelmondragon/packfinderz-cart/internal/cart"

type cartResponse struct {
	Lines     []cart.Line       `json:"lines"`
	SelectAll bool              `json:"selectAll"`
	Summary   cart.OrderSummary `json:"summary"`
	State     cart.State        `json:"state"`
	Online    bool              `json:"online"`
	Error     string            `json:"error,omitempty"`
}

func newCartResponse(mgr CartManager, snap cart.Snapshot) cartResponse {
	resp := cartResponse{
		Lines:     snap.Lines,
		SelectAll: snap.SelectAll,
		Summary:   cart.CalculateSummary(snap, mgr.ShippingFee()),
		State:     mgr.State(),
		Online:    mgr.Online(),
	}
	if resp.Lines == nil {
		resp.Lines = []cart.Line{}
	}
	if err := mgr.LastError(); err != nil && resp.State == cart.StateError {
		resp.Error = "your cart could not be read or saved on this device"
	}
	return resp
}

type lineMutationResponse struct {
	Line cart.Line    `json:"line"`
	Cart cartResponse `json:"cart"`
}

type removeSelectedResponse struct {
	Removed int          `json:"removed"`
	Cart    cartResponse `json:"cart"`
}

type syncResponse struct {
	cart.SyncReport
	Summary cart.OrderSummary `json:"summary"`
}

type connectivityResponse struct {
	Online bool       `json:"online"`
	State  cart.State `json:"state"`
}
