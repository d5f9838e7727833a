package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
)

// NewServer builds the HTTP server. WebSocket endpoints live on the plain mux so the upgrade can
// hijack the connection; everything else goes to gin.
func NewServer(hub *core.Hub, authn auth.Authenticator, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	api := NewAPIHandlers(hub, logger)
	router.GET("/health", healthHandler)
	router.GET("/metrics", api.Metrics)

	apiGroup := router.Group("/api")
	apiGroup.GET("/users", api.Users)
	apiGroup.GET("/rooms", api.Rooms)
	apiGroup.GET("/rooms/:room/members", api.RoomMembers)

	ws := WSAuthMiddleware(authn, hub.Metrics(), logger, NewWSHandler(hub, cfg, logger))

	mux := stdhttp.NewServeMux()
	mux.Handle("GET /{$}", BannerUnlessUpgrade(ws))
	mux.Handle("GET /ws", ws)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
