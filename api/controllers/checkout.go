package controllers

import (
	"net/http"

	"github.com/angelmondragon/packfinderz-cart/api/responses"
	"github.com/angelmondragon/packfinderz-cart/api/validators"
	"github.com/angelmondragon/packfinderz-cart/internal/cart"
	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
)

// Checkout creates a hosted payment session. Offline yields 503 with code OFFLINE.
func Checkout(mgr CartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := mgr.InitiateCheckout(r.Context(), payload.SuccessURL, payload.CancelURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// NoticeDrainer hands out pending user-facing notices.
type NoticeDrainer interface {
	Drain() []cart.Notice
}

func Notices(drainer NoticeDrainer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notices := []cart.Notice{}
		if drainer != nil {
			notices = drainer.Drain()
		}
		responses.WriteSuccess(w, notices)
	}
}

func Connectivity(mgr CartManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		online := mgr.CheckConnectivity(r.Context())
		responses.WriteSuccess(w, connectivityResponse{Online: online, State: mgr.State()})
	}
}
