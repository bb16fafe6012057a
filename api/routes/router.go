package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/orders"
	products "github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	productService products.Service,
	cartService cart.Service,
	checkoutFlow controllers.CheckoutFlow,
	submitter controllers.OrderSubmitter,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	ready := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		ready["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.App.IsProd(), logg))
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/categories", controllers.ListCategories(productService, logg))
		r.Get("/products", controllers.ListProducts(productService, logg))
		r.Get("/products/{productId}", controllers.GetProduct(productService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutStart(checkoutFlow, logg))
			r.Post("/shipping", controllers.CheckoutShipping(checkoutFlow, logg))
			if redisClient != nil {
				r.With(middleware.Idempotency(redisClient, cfg.Redis.IdempotencyTTL, logg)).
					Post("/payment", controllers.CheckoutPayment(submitter, logg))
			} else {
				r.Post("/payment", controllers.CheckoutPayment(submitter, logg))
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Get("/orders", controllers.OrdersList(ordersService, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(ordersService, logg))
		})
	})

	return r
}
