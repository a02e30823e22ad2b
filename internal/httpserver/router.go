package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	Engine *gin.Engine
}

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctx context.Context) error

func NewRouter(
	contactHandler *ContactHandler, logger *zap.Logger, checks map[string]ReadinessCheck,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), MetricsMiddleware(), LoggingMiddleware(logger))

	RegisterHealth(r, checks)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if contactHandler != nil {
		api := r.Group("/api")
		api.POST("/contact", contactHandler.Submit)
	}

	return &Router{Engine: r}
}

// RegisterHealth mounts /healthz and /readyz on r
func RegisterHealth(r gin.IRoutes, checks map[string]ReadinessCheck) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": name + "_not_ready",
					"error":  err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
