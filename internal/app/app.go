package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/moderation"
	transporthttp "github.com/vovakirdan/chatrelay/internal/transport/http"
	"github.com/vovakirdan/chatrelay/internal/validate"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	censor, err := moderation.NewCensor(cfg.CensoredWords, cfg.MaskRune())
	if err != nil {
		return nil, fmt.Errorf("init censor: %w", err)
	}

	hub := core.NewHub(cfg.Chat(),
		core.WithLogger(logger),
		core.WithMetrics(metrics.New()),
		core.WithCensor(censor),
	)

	var authn auth.Authenticator = auth.Anonymous{}
	if cfg.AuthEnabled {
		rules := validate.Rules{MaxUsernameLength: cfg.MaxUsernameLength}
		authn = &auth.JWTAuthenticator{Config: JWTConfig(cfg), Accept: rules.Username}
		logger.Info().Str("issuer", cfg.JWTIssuer).Msg("token authentication enabled")
	}

	return &App{
		server:          transporthttp.NewServer(hub, authn, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}, nil
}

// JWTConfig derives token settings from the configuration.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer func() {
		stopHub()
		<-a.hub.Done()
	}()
	go a.hub.Run(hubCtx)

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Hijacked WebSocket connections are not tracked by Shutdown; stopping the hub
		// releases them.
		stopHub()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
