package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/arad71/Vendor-saas-mvp/internal/infra/config"
	"github.com/arad71/Vendor-saas-mvp/internal/infra/obs"
)

type Handlers struct {
	Listings *ListingHandler
	Bookings *BookingHandler
	Payments *PaymentHandler
	Metrics  *MetricsHandler
	Auth     *AuthMiddleware
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")

	// The webhook authenticates by payload signature, not bearer token.
	if h.Payments != nil {
		api.POST("/payments/webhook", h.Payments.Webhook)
	}

	authed := api.Group("")
	if h.Auth != nil {
		authed.Use(h.Auth.Handle)
	}
	if h.Listings != nil {
		authed.GET("/listings", h.Listings.List)
		authed.POST("/listings", h.Listings.Create)
		authed.GET("/listings/:id", h.Listings.Get)
		authed.PATCH("/listings/:id", h.Listings.Update)
		authed.DELETE("/listings/:id", h.Listings.Delete)
		authed.POST("/listings/:id/activate", h.Listings.Activate)
		authed.POST("/listings/:id/deactivate", h.Listings.Deactivate)
		authed.POST("/listings/:id/images", h.Listings.UploadImage)
	}
	if h.Bookings != nil {
		authed.GET("/bookings", h.Bookings.List)
		authed.POST("/bookings", h.Bookings.Create)
		authed.GET("/bookings/:id", h.Bookings.Get)
		authed.PATCH("/bookings/:id", h.Bookings.Update)
		authed.POST("/bookings/:id/cancel", h.Bookings.Cancel)
	}
	if h.Payments != nil {
		authed.POST("/payments/bookings/:id/intent", h.Payments.CreateIntent)
		authed.POST("/payments/bookings/:id/refund", h.Payments.Refund)
	}
	if h.Metrics != nil {
		authed.GET("/vendors/me/metrics", h.Metrics.Report)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
