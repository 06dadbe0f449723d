package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/packfinderz-cart/api/responses"
	"github.com/angelmondragon/packfinderz-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/packfinderz-cart/pkg/errors"
	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
)

const readyTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes the remote client's circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PackFinderz-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the device store answers. The remote API is not
// required: the engine is usable offline, so the breaker state is informational.
func HealthReady(cfg *config.Config, logg *logger.Logger, store Pinger, breaker BreakerReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PackFinderz-Env", cfg.App.Env)
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "device store unavailable"))
				return
			}
		}
		body := map[string]string{"status": "ready", "store": cfg.Store.Driver}
		if breaker != nil {
			body["remoteBreaker"] = breaker.BreakerState()
		}
		responses.WriteSuccess(w, body)
	}
}
