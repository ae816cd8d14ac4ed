package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/him9495-payu/kaira/internal/logger"
)

// RouterConfig carries the handlers the router mounts.
type RouterConfig struct {
	Webhook *WebhookHandler
	Logger  *slog.Logger
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(logger.RequestMiddleware(cfg.Logger))
	}

	if cfg.Webhook != nil {
		r.GET("/webhook", cfg.Webhook.Verify)
		r.POST("/webhook", cfg.Webhook.Receive)
		r.GET("/healthz", cfg.Webhook.Health)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
