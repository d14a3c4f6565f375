package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecomcore/catalog/internal/service"
	"github.com/ecomcore/catalog/pkg/health"
	"github.com/ecomcore/catalog/pkg/middleware"
)

// RouterConfig carries the services and cross-cutting settings the router
// needs.
type RouterConfig struct {
	Products *service.ProductService
	Variants *service.VariantService
	Catalog  *service.CatalogService
	Stock    *service.StockService
	Health   *health.Handler
	CORS     middleware.CORSConfig
	Logger   *slog.Logger
}

// NewRouter creates a chi router with all catalog service routes registered.
// Mutating endpoints are restricted to the admin role resolved from the
// gateway identity headers.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Identity())
	r.Use(middleware.Tracing("catalog"))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("catalog"))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	productHandler := NewProductHandler(cfg.Products, cfg.Catalog, cfg.Logger)
	variantHandler := NewVariantHandler(cfg.Variants, cfg.Logger)
	stockHandler := NewStockHandler(cfg.Stock, cfg.Logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", productHandler.ListProducts)
		r.Get("/search", productHandler.SearchProducts)

		r.With(middleware.RequireAdmin()).Post("/", productHandler.CreateProduct)

		// chi allows only one parameter name per segment, so the detail
		// route's idOrSlug names the product for the nested routes too.
		r.Route("/{idOrSlug}", func(r chi.Router) {
			r.Get("/", productHandler.GetProduct)
			r.With(middleware.RequireAdmin()).Put("/", productHandler.UpdateProduct)
			r.With(middleware.RequireAdmin()).Delete("/", productHandler.ArchiveProduct)

			r.Route("/variants", func(r chi.Router) {
				r.Get("/", variantHandler.ListVariants)
				r.With(middleware.RequireAdmin()).Post("/", variantHandler.CreateVariant)
			})
			r.With(middleware.CacheControl(60)).Get("/options", productHandler.GetProductOptions)
			r.Get("/stock", productHandler.CheckStock)
		})
	})

	r.Route("/api/v1/variants", func(r chi.Router) {
		r.Get("/sku/{sku}", variantHandler.GetVariantBySKU)
		r.Get("/{id}", variantHandler.GetVariant)
		r.With(middleware.RequireAdmin()).Put("/{id}", variantHandler.UpdateVariant)
		r.With(middleware.RequireAdmin()).Delete("/{id}", variantHandler.DeleteVariant)

		r.Post("/{id}/reserve", stockHandler.Reserve)
		r.Post("/{id}/release", stockHandler.Release)
		r.Post("/{id}/fulfill", stockHandler.Fulfill)
		r.With(middleware.RequireAdmin()).Post("/{id}/adjust", stockHandler.Adjust)
	})

	return r
}
