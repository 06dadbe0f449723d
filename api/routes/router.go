package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packfinderz-cart/api/controllers"
	"github.com/angelmondragon/packfinderz-cart/api/middleware"
	"github.com/angelmondragon/packfinderz-cart/pkg/config"
	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store controllers.Pinger,
	breaker controllers.BreakerReporter,
	manager controllers.CartManager,
	notices controllers.NoticeDrainer,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store, breaker))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/connectivity", controllers.Connectivity(manager))
		r.Get("/notices", controllers.Notices(notices))
		r.Post("/checkout", controllers.Checkout(manager, logg))
		r.Post("/lifecycle/foreground", controllers.Foreground(manager))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(manager, logg))
			r.Delete("/", controllers.CartClear(manager, logg))
			r.Post("/load", controllers.CartLoad(manager, logg))
			r.Post("/refresh", controllers.CartRefresh(manager, logg))
			r.Get("/summary", controllers.CartSummary(manager))
			r.Get("/validation", controllers.CartValidation(manager))
			r.Post("/sync", controllers.CartSync(manager))
			r.Post("/select-all/toggle", controllers.CartToggleAll(manager, logg))

			r.Post("/items", controllers.CartAddItem(manager, logg))
			r.Delete("/items/selected", controllers.CartRemoveSelected(manager, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(manager, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(manager, logg))
			r.Post("/items/{productId}/toggle", controllers.CartToggleItem(manager, logg))
		})
	})

	return r
}
