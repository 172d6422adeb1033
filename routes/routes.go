package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"local-services-server/config"
	"local-services-server/metrics"
	"local-services-server/middleware"
	"local-services-server/services"
	ws "local-services-server/websocket"
)

// Deps carries everything the router needs. A nil RateLimiter disables rate limiting.
type Deps struct {
	Config        *config.Config
	DB            *gorm.DB
	Logger        zerolog.Logger
	Bookings      *services.BookingService
	Notifications *services.NotificationService
	Admins        *services.AdminService
	Dashboard     *services.DashboardService
	Exports       *services.ExportService
	Hub           *ws.Hub
	RateLimiter   *middleware.RateLimiter
}

// SetupRouter builds the gin engine with the middleware stack and all API routes.
func SetupRouter(d Deps) *gin.Engine {
	metrics.Register()
	router := gin.New()

	// Disable automatic redirects for trailing slashes
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Logger))
	// Metrics wraps Recovery so panicking requests are counted as 500s.
	router.Use(middleware.Metrics())
	router.Use(middleware.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORS(d.Config.Server))
	router.Use(middleware.InputValidationMiddleware())
	if d.RateLimiter != nil {
		router.Use(middleware.RateLimitMiddleware(d.RateLimiter, d.Logger))
	}

	router.GET("/health", healthHandler(d.DB))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AdminAuth(d.Config.JWT, d.Admins, d.Logger)
	api := router.Group("/api")

	RegisterBookingRoutes(api, NewBookingHandler(d.Bookings, d.Exports))
	catalog := NewCatalogHandler(d.DB)
	RegisterServiceRoutes(api, catalog)
	RegisterAdminServiceRoutes(api, catalog, auth)
	RegisterAdminRoutes(api, NewAdminHandler(d.Admins, d.Bookings, d.Dashboard, d.Exports, d.Hub, d.Config.Server.AllowedOrigins), auth)
	RegisterNotificationRoutes(api, NewNotificationHandler(d.Notifications), auth)

	return router
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unavailable"
		}

		c.JSON(status, gin.H{
			"status":   http.StatusText(status),
			"database": dbStatus,
			"message":  "Local services server is running",
			"time":     time.Now().UTC(),
		})
	}
}
