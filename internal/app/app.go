package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fedichat/livechat-connector/internal/caps"
	"github.com/fedichat/livechat-connector/internal/config"
	"github.com/fedichat/livechat-connector/internal/diag"
	"github.com/fedichat/livechat-connector/internal/identity"
	"github.com/fedichat/livechat-connector/internal/log"
	"github.com/fedichat/livechat-connector/internal/resolve"
	"github.com/fedichat/livechat-connector/internal/store"
	"github.com/fedichat/livechat-connector/internal/store/sqlite"
	transporthttp "github.com/fedichat/livechat-connector/internal/transport/http"
	"github.com/fedichat/livechat-connector/internal/widget"
)

// App wires together the resolution pipeline and the HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.MetadataStore
	stop            chan struct{}
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("metadata cache initialized")

	jwtConfig := &identity.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
	}

	provider := identity.NewProvider(
		cfg.Auth.URL, jwtConfig, cfg.Auth.OIDCProviders,
		cfg.Auth.RequestTimeout, nil, log.Component(logger, "identity"),
	)

	resolver := resolve.New(LocalServer(cfg.XMPP), log.Component(logger, "resolver"))
	adapter := widget.NewAdapter(nil, log.Component(logger, "widget"))
	checker := diag.NewChecker(cfg.Auth.RequestTimeout, nil, log.Component(logger, "diag"))

	handlers := transporthttp.NewHandlers(
		provider, resolver, adapter, checker, st, cfg.MetadataTTL,
		resolve.UserPrefs{
			AutoViewerMode:   cfg.Prefs.AutoViewerMode,
			ForceReadonly:    cfg.Prefs.ForceReadonly,
			AdvancedControls: cfg.Prefs.AdvancedControls,
		},
		log.Component(logger, "http"),
	)

	stop := make(chan struct{})
	server := transporthttp.NewServer(handlers, cfg, logger, stop)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		stop:            stop,
		log:             logger,
	}, nil
}

// LocalServer maps the XMPP configuration block onto the resolver's local
// server description.
func LocalServer(cfg config.XMPPConfig) resolve.LocalServer {
	return resolve.LocalServer{
		Domain:        cfg.Domain,
		MUCDomain:     cfg.MUCDomain,
		AnonymousHost: cfg.AnonymousHost,
		Endpoints: resolve.TransportEndpoints{
			BOSH:      cfg.BOSHURL,
			Websocket: cfg.WebsocketURL,
		},
		Caps: caps.ServerCaps{
			WebsocketS2S: cfg.WebsocketS2S,
			DirectS2S:    cfg.DirectS2S,
		},
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the metadata cache and stops background workers.
func (a *App) cleanup() {
	close(a.stop)
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
