package api

import (
	"net/http"
	"time"

	"killua-service-provider/internal/interface/api/middleware"
	"killua-service-provider/pkg/logger"
	"killua-service-provider/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// RouterOptions configures the HTTP router
type RouterOptions struct {
	Version        string
	RequestTimeout time.Duration
	// MetricsHandler is mounted at /metrics when set
	MetricsHandler http.Handler
}

// InitRoutes builds the gin engine serving the staff API
func InitRoutes(
	serviceHandler *ServiceHandler,
	notificationHandler *NotificationHandler,
	m *metrics.Metrics,
	log logger.Logger,
	opts RouterOptions,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.Timeout(opts.RequestTimeout))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": opts.Version,
		})
	})
	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	api := router.Group("/api/v1")
	{
		services := api.Group("/services")
		{
			services.GET("", serviceHandler.ListServices)
			services.POST("", serviceHandler.CreateService)
			services.GET("/next-package-id", serviceHandler.NextPackageID)
			services.GET("/:id", serviceHandler.GetService)
			services.POST("/:id/request", serviceHandler.RequestService)
			services.POST("/:id/accept", serviceHandler.AcceptService)
			services.POST("/:id/reject", serviceHandler.RejectService)
			services.POST("/:id/reactivate", serviceHandler.ReactivateService)
			services.POST("/:id/notify-expired", serviceHandler.NotifyExpired)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkAsRead)
			notifications.GET("/:id/deliveries", notificationHandler.ListDeliveries)
		}
	}

	return router
}
