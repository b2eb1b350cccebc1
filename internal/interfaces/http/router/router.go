package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meliznube/backend/internal/infrastructure/config"
	"github.com/meliznube/backend/internal/infrastructure/logger"
	"github.com/meliznube/backend/internal/interfaces/http/handler"
	"github.com/meliznube/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the route handlers the router wires up.
type Handlers struct {
	Webhook *handler.WebhookHandler
	OAuth   *handler.OAuthHandler
	System  *handler.SystemHandler
}

// New builds the gin engine with middleware and all routes registered.
func New(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/healthz", h.System.Healthz)
	engine.POST("/oauth/exchange", h.OAuth.Exchange)
	engine.POST("/webhooks/orders", h.Webhook.HandleOrderNotification)

	return engine
}
