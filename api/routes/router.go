package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/groupcart-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/groupcart-backend/api/controllers/cart"
	"github.com/angelmondragon/groupcart-backend/api/middleware"
	"github.com/angelmondragon/groupcart-backend/internal/cart"
	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	cartService cart.Service,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.GuestSession(cfg.Cart))

		r.Get("/", cartcontrollers.GetCart(cartService, logg))
		r.Delete("/", cartcontrollers.ClearCart(cartService, logg))
		r.Post("/items", cartcontrollers.AddItem(cartService, logg))
		r.Patch("/items/{itemId}", cartcontrollers.UpdateItem(cartService, logg))
		r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(cartService, logg))
		r.With(middleware.RequireUser(logg)).Post("/merge", cartcontrollers.Merge(cartService, cfg.Cart, logg))
	})

	return r
}
