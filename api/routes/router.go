package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shoppingcart/api/controllers"
	cartcontrollers "github.com/angelmondragon/shoppingcart/api/controllers/cart"
	"github.com/angelmondragon/shoppingcart/api/middleware"
	"github.com/angelmondragon/shoppingcart/internal/cart"
	"github.com/angelmondragon/shoppingcart/pkg/config"
	"github.com/angelmondragon/shoppingcart/pkg/logger"
)

// NewRouter wires the cart API. metricsHandler is mounted at /metrics when non-nil;
// readiness lists the dependencies pinged by /health/ready.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	cartService cart.Service,
	metricsHandler http.Handler,
	readiness map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/carts/{instance}", func(r chi.Router) {
		r.Get("/", cartcontrollers.CartFetch(cartService, logg))
		r.Delete("/", cartcontrollers.CartDestroy(cartService, logg))

		r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
		r.Route("/items/{rowId}", func(r chi.Router) {
			r.Patch("/", cartcontrollers.CartUpdateItem(cartService, logg))
			r.Delete("/", cartcontrollers.CartRemoveItem(cartService, logg))
			r.Post("/saved", cartcontrollers.CartSetSaved(cartService, logg))
			r.Post("/refresh", cartcontrollers.CartRefreshItem(cartService, logg))
		})

		r.Post("/store/{identifier}", cartcontrollers.CartStore(cartService, logg))
		r.Post("/restore/{identifier}", cartcontrollers.CartRestore(cartService, logg))
	})

	return r
}
