// README: HTTP router registration.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"unihub/internal/modules/customer"
	"unihub/internal/modules/driver"
)

type ServerDeps struct {
	Customers   *customer.Manager
	CustomerSvc *customer.Service
	Drivers     *driver.Manager
	Hub         *FeedHub
	Log         *zap.Logger
}

func NewRouter(deps ServerDeps) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Log))

	customerHandler := NewCustomerHandler(deps.Customers, deps.CustomerSvc)
	router.POST("/api/customer/orders", customerHandler.Create)
	router.GET("/api/customer/orders/:id", customerHandler.Get)
	router.POST("/api/customer/orders/:id/cancel", customerHandler.Cancel)
	router.POST("/api/customer/orders/:id/pay", customerHandler.Pay)

	driverHandler := NewDriverHandler(deps.Drivers)
	router.POST("/api/drivers/:driver_id/session", driverHandler.OpenSession)
	router.DELETE("/api/drivers/:driver_id/session", driverHandler.CloseSession)
	router.GET("/api/drivers/:driver_id/feed", driverHandler.Feed)
	router.POST("/api/drivers/:driver_id/orders/:order_id/accept", driverHandler.Accept)
	router.POST("/api/drivers/:driver_id/orders/:order_id/decline", driverHandler.Decline)
	router.POST("/api/drivers/:driver_id/pickup", driverHandler.CompletePickup)
	router.POST("/api/drivers/:driver_id/complete", driverHandler.Complete)
	router.POST("/api/drivers/:driver_id/next", driverHandler.Next)

	router.GET("/ws/drivers/:driver_id/feed", deps.Hub.Serve)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
