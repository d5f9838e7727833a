package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/metrics"
)

const bannerText = "WebSocket server is running"

type contextKey string

// ContextKeyUsername is the request context key for the authenticated display name.
const ContextKeyUsername contextKey = "username"

// UsernameFromContext returns the name stored by WSAuthMiddleware, or "" for anonymous requests.
func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(ContextKeyUsername).(string)
	return name
}

// WSAuthMiddleware admits an upgrade request only if authn accepts it. Rejected requests get a
// 401 before any session exists.
func WSAuthMiddleware(authn auth.Authenticator, m *metrics.Metrics, logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, err := authn.Authenticate(r)
		if err != nil {
			m.RejectedUpgrades.Add(1)
			logger.Debug().Err(err).Str("remote", remoteIP(r)).Msg("websocket upgrade rejected")
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextKeyUsername, name)))
	})
}

// BannerUnlessUpgrade answers plain requests with a status line and passes WebSocket upgrades
// to next.
func BannerUnlessUpgrade(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isWebSocketUpgrade(r) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(bannerText))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isWebSocketUpgrade(r *http.Request) bool {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return false
	}
	for _, token := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
			return true
		}
	}
	return false
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("remote", c.ClientIP()).
			Msg("http request")
	}
}
