package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fedichat/livechat-connector/internal/config"
)

// NewServer builds the HTTP server with the connection-resolution routes.
// stop gates the rate limiter's reset goroutine.
func NewServer(handlers *Handlers, cfg config.Config, logger *zerolog.Logger, stop <-chan struct{}) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	limiter := newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	limiter.startSweep(stop)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/healthz", healthHandler)

	api := router.Group("/api/v1")
	api.Use(RateLimitMiddleware(limiter))
	api.Use(OptionalAuthMiddleware())
	{
		api.GET("/rooms/:room/connection", handlers.Connection)
		api.POST("/rooms/:room/metadata", handlers.PutMetadata)
		api.POST("/diagnostic", handlers.Diagnostic)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
