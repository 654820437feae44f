package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Abdullah628/workspace-notes/internal/config"
	"github.com/Abdullah628/workspace-notes/internal/http/handler"
	httpmiddleware "github.com/Abdullah628/workspace-notes/internal/http/middleware"
	"github.com/Abdullah628/workspace-notes/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, guard *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh-token", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/external/callback", authHandler.ExternalCallback)

		auth.POST("/change-password", guard.Require(), authHandler.ChangePassword)
		auth.POST("/set-password", guard.Require(), authHandler.SetPassword)
		auth.GET("/me", guard.Require(), authHandler.Me)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
