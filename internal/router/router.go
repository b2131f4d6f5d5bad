package router

import (
	"maaztelecom/internal/config"
	"maaztelecom/internal/handler"
	"maaztelecom/internal/metrics"
	"maaztelecom/internal/middleware"
	"maaztelecom/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the already-wired services the HTTP layer exposes.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
type Deps struct {
	Catalog  service.CatalogService
	Sales    service.SaleService
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil disables /metrics
	Health   map[string]handler.HealthCheck
	// InvoiceDir, when set, is served at /invoices for local invoice storage.
	InvoiceDir string
	// Done stops background helpers such as the rate limiter purge loop.
	Done <-chan struct{}
}

// New returns a configured Gin engine.
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.Prometheus(deps.Metrics))
	r.Use(middleware.ErrorHandler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(deps.Catalog)
	salesH := handler.NewSalesHandler(deps.Sales)
	verifyH := handler.NewVerifyHandler(deps.Sales)
	streamH := handler.NewStreamHandler(deps.Catalog, deps.Sales)
	publicLimiter := middleware.NewIPRateLimiter(cfg.PublicRatePerMinute, 10, deps.Done)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(deps.Health))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if deps.InvoiceDir != "" {
		r.Static("/invoices", deps.InvoiceDir)
	}

	v1 := r.Group("/v1")
	{
		products := v1.Group("/products")
		{
			products.POST("", productsH.Create)
			products.GET("", productsH.List)
			products.GET("/:id", productsH.Get)
			products.DELETE("/:id", productsH.Delete)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("", salesH.Record)
			sales.POST("/preview", salesH.Preview)
			sales.GET("", salesH.List)
			sales.GET("/:id", salesH.Get)
			sales.DELETE("/:id", salesH.Delete)
			sales.POST("/:id/invoice/retry", salesH.RetryInvoice)
			sales.POST("/:id/notification/retry", salesH.RetryNotification)
		}

		// Public sale verification, no auth; rate limited per IP
		v1.GET("/verify/:id", publicLimiter.Middleware(), verifyH.Verify)

		v1.GET("/stream/:topic", streamH.Stream)
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
