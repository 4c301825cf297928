package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/inventario/api/controllers"
	"github.com/angelmondragon/inventario/api/middleware"
	products "github.com/angelmondragon/inventario/internal/products"
	"github.com/angelmondragon/inventario/internal/sales"
	"github.com/angelmondragon/inventario/pkg/config"
	"github.com/angelmondragon/inventario/pkg/db"
	"github.com/angelmondragon/inventario/pkg/logger"
	"github.com/angelmondragon/inventario/pkg/metrics"
	"github.com/angelmondragon/inventario/pkg/redis"
	"github.com/angelmondragon/inventario/web"
)

// Deps groups what the router wires into handlers. Redis and metrics are optional.
type Deps struct {
	DB             db.Pinger
	Redis          *redis.Client
	Views          controllers.Renderer
	ProductService products.Service
	SalesService   sales.Service
	HTTPMetrics    *metrics.HTTPMetrics
	Gatherer       prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		rateLimiter      redis.RateLimiter
	)
	readyDeps := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		rateLimiter = deps.Redis
		readyDeps["redis"] = deps.Redis
	}

	probeCORS := middleware.CORS(cfg.CORS.AllowedOrigins)
	r.Route("/health", func(r chi.Router) {
		r.Use(probeCORS)
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyDeps, logg))
	})

	if cfg.Metrics.Enabled {
		r.With(probeCORS).Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler(deps.Gatherer))
	}

	r.Handle("/public/*", http.StripPrefix("/public/", web.Static(cfg.Views.StaticDir)))

	r.Group(func(r chi.Router) {
		if cfg.App.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.App.RequestTimeout))
		}

		r.Get("/", controllers.ListProducts(deps.ProductService, deps.Views, logg))
		r.Get("/editar/{id}", controllers.EditProductForm(deps.ProductService, deps.Views, logg))
		r.Get("/ventas", controllers.ListSales(deps.SalesService, deps.Views, logg))
		r.Get("/ventas/nueva", controllers.NewSaleForm(deps.SalesService, deps.Views, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(
				middleware.NewRateLimitPolicy("forms", cfg.RateLimit.Window, cfg.RateLimit.Max),
				rateLimiter,
				logg,
			))
			r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg))

			r.Post("/agregar", controllers.CreateProduct(deps.ProductService, logg))
			r.Post("/editar/{id}", controllers.UpdateProduct(deps.ProductService, logg))
			r.Post("/borrar/{id}", controllers.DeleteProduct(deps.ProductService, logg))
			r.Post("/ventas", controllers.RecordSale(deps.SalesService, logg))
		})
	})

	return r
}
