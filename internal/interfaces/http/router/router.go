// Package router assembles the HTTP surface: middleware chain, public
// OAuth endpoints, vendor routes, and the admin review routes.
package router

import (
	"time"

	"github.com/markethub/backend/internal/infrastructure/auth"
	"github.com/markethub/backend/internal/infrastructure/config"
	"github.com/markethub/backend/internal/infrastructure/logger"
	"github.com/markethub/backend/internal/interfaces/http/handler"
	"github.com/markethub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles the handlers the router wires up
type Handlers struct {
	System  *handler.SystemHandler
	Vendor  *handler.VendorHandler
	Product *handler.ProductHandler
	Shopify *handler.ShopifyHandler
}

// Options controls the middleware chain
type Options struct {
	JWTService     *auth.JWTService
	Logger         *zap.Logger
	HTTP           config.HTTPConfig
	TracingEnabled bool
	ServiceName    string
	// RateLimit requests per client per minute; zero disables limiting
	RateLimit int
}

// New builds the gin engine with the full middleware chain and all routes
func New(h Handlers, opts Options) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(opts.HTTP.TrustedProxies)
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: opts.ServiceName,
		Enabled:     opts.TracingEnabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	if opts.Logger != nil {
		engine.Use(logger.GinMiddleware(opts.Logger))
		engine.Use(logger.Recovery(opts.Logger))
	} else {
		engine.Use(gin.Recovery())
	}
	engine.Use(middleware.Secure())

	corsCfg := middleware.DefaultCORSConfig()
	if len(opts.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = opts.HTTP.CORSAllowOrigins
	}
	if len(opts.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = opts.HTTP.CORSAllowMethods
	}
	if len(opts.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = opts.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if opts.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	}
	if opts.RateLimit > 0 {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(opts.RateLimit, time.Minute)))
	}

	// Health probes and the OAuth endpoints are unauthenticated; Shopify
	// redirects the merchant's browser here without a portal token
	engine.GET("/healthz", h.System.Liveness)
	engine.GET("/readyz", h.System.Readiness)
	engine.GET("/shopify/install", h.Shopify.Install)
	engine.GET("/shopify/callback", h.Shopify.Callback)

	api := engine.Group("/api/v1")
	api.Use(middleware.JWTAuth(opts.JWTService))
	api.Use(middleware.TracingAttributeInjector())

	api.GET("/system/info", h.System.Info)

	vendors := api.Group("/vendors")
	{
		vendors.POST("", h.Vendor.Register)
		vendors.GET("/me", h.Vendor.GetOwn)
	}

	products := api.Group("/products")
	products.Use(middleware.RequireVendor())
	{
		products.POST("", h.Product.Create)
		products.GET("", h.Product.List)
		products.GET("/:id", h.Product.Get)
		products.PUT("/:id", h.Product.Update)
		products.POST("/:id/submit", h.Product.Submit)
		products.POST("/:id/images", h.Product.UploadImage)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/vendors", h.Vendor.List)
		admin.POST("/vendor-status", h.Vendor.UpdateStatus)
		admin.GET("/products", h.Product.ListAll)
		admin.POST("/products/:id/approve", h.Product.Approve)
		admin.POST("/products/:id/reject", h.Product.Reject)
	}

	return engine
}
