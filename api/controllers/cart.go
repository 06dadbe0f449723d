package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-cart/api/responses"
	"github.com/angelmondragon/packfinderz-cart/api/validators"
	"github.com/angelmondragon/packfinderz-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/packfinderz-cart/pkg/errors"
	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
)

// CartManager is the slice of the cart manager the local API drives.
type CartManager interface {
	CheckConnectivity(ctx context.Context) bool
	Online() bool
	Snapshot() cart.Snapshot
	State() cart.State
	LastError() error
	Summary() cart.OrderSummary
	ShippingFee() decimal.Decimal
	Load(ctx context.Context) cart.Snapshot
	Refresh(ctx context.Context) cart.Snapshot
	AddItem(ctx context.Context, productID int64, quantity int) (cart.Line, error)
	UpdateQuantity(ctx context.Context, productID int64, quantity int) error
	RemoveItem(ctx context.Context, productID int64) error
	RemoveSelected(ctx context.Context) (int, error)
	ToggleSelection(ctx context.Context, productID int64) error
	ToggleSelectAll(ctx context.Context) error
	ValidateForCheckout(ctx context.Context) cart.Validation
	Synchronize(ctx context.Context) cart.SyncReport
	InitiateCheckout(ctx context.Context, successURL, cancelURL string) (cart.CheckoutSession, error)
	Clear(ctx context.Context) error
	Foreground(ctx context.Context) cart.Snapshot
}

// CartGet returns the current cart without touching the network.
func CartGet(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart manager unavailable"))
			return
		}
		responses.WriteSuccess(w, newCartResponse(mgr, mgr.Snapshot()))
	}
}

func CartLoad(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := mgr.Load(r.Context())
		responses.WriteSuccess(w, newCartResponse(mgr, snap))
	}
}

func CartRefresh(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := mgr.Refresh(r.Context())
		responses.WriteSuccess(w, newCartResponse(mgr, snap))
	}
}

// CartAddItem adds a product. Remote failures degrade to an offline line rather than an error.
func CartAddItem(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := mgr.AddItem(r.Context(), payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, lineMutationResponse{
			Line: line,
			Cart: newCartResponse(mgr, mgr.Snapshot()),
		})
	}
}

func CartUpdateItem(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := mgr.UpdateQuantity(r.Context(), productID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(mgr, mgr.Snapshot()))
	}
}

func CartRemoveItem(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := mgr.RemoveItem(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(mgr, mgr.Snapshot()))
	}
}

func CartRemoveSelected(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := mgr.RemoveSelected(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, removeSelectedResponse{
			Removed: removed,
			Cart:    newCartResponse(mgr, mgr.Snapshot()),
		})
	}
}

func CartToggleItem(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := mgr.ToggleSelection(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(mgr, mgr.Snapshot()))
	}
}

func CartToggleAll(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.ToggleSelectAll(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(mgr, mgr.Snapshot()))
	}
}

func CartSummary(mgr CartManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, mgr.Summary())
	}
}

// CartValidation always answers 200; an invalid cart is a verdict, not an error.
func CartValidation(mgr CartManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, mgr.ValidateForCheckout(r.Context()))
	}
}

func CartSync(mgr CartManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := mgr.Synchronize(r.Context())
		responses.WriteSuccess(w, syncResponse{
			SyncReport: report,
			Summary:    cart.CalculateSummary(report.Snapshot, mgr.ShippingFee()),
		})
	}
}

func CartClear(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(mgr, mgr.Snapshot()))
	}
}

// Foreground is called by the UI shell when the app resumes.
func Foreground(mgr CartManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := mgr.Foreground(r.Context())
		responses.WriteSuccess(w, newCartResponse(mgr, snap))
	}
}
