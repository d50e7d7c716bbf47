package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mossy-p/peer-signaling/config"
	"github.com/mossy-p/peer-signaling/internal/middleware"
)

// ConnectionCounter reports the number of live connections.
type ConnectionCounter interface {
	Len() int
}

// SetupRouter wires the HTTP surface: health, metrics and the signaling
// WebSocket endpoint.
func SetupRouter(cfg *config.Config, ws *SignalingServer, conns ConnectionCounter, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if !cfg.IsProduction() {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(cfg.AllowedOrigins))

	router.GET("/health", Health(conns))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/signal", middleware.HandshakeToken(), ws.HandleSignaling)
	}

	return router
}

// Health reports liveness and the current connection count.
func Health(conns ConnectionCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": conns.Len()})
	}
}
