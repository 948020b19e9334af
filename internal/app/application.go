// Package app assembles the components into a runnable server:
// store -> blob storage -> realtime gateway -> API -> HTTP.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"threadline/internal/api"
	"threadline/internal/auth"
	"threadline/internal/blob"
	"threadline/internal/config"
	"threadline/internal/logging"
	"threadline/internal/realtime"
	"threadline/internal/store"
	"threadline/pkg/interfaces"
)

// gateCleanupInterval bounds how long stale rate-gate entries linger.
const gateCleanupInterval = 5 * time.Minute

// Application owns every long-lived component and their shutdown order.
type Application struct {
	config     *config.Config
	mongo      *store.Mongo
	gateway    *realtime.Gateway
	gate       *realtime.RecipientRateGate
	httpServer *http.Server

	stopCleanup context.CancelFunc
}

// NewApplication wires all components in dependency order. The context
// bounds the initial MongoDB and S3 setup only.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mongo, err := store.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	var blobs interfaces.BlobStorage
	if cfg.S3.Bucket != "" {
		blobs, err = blob.NewS3Storage(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Endpoint)
		if err != nil {
			_ = mongo.Close(context.Background())
			return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
		}
	} else {
		logging.Warn().Msg("no S3 bucket configured, image uploads disabled")
		blobs = blob.Disabled{}
	}

	users := store.NewUserRepo(mongo)
	posts := store.NewPostRepo(mongo)
	messages := store.NewMessageRepo(mongo)

	registry := realtime.NewRegistry()
	gate := realtime.NewRecipientRateGate(cfg.RateLimit.RecipientLimit, cfg.RateLimit.RecipientWindow)
	gateway := realtime.NewGateway(registry, gate, messages, cfg.WebSocket)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	server := api.NewServer(cfg, users, posts, messages, blobs, gateway, issuer, mongo.Ping)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		mongo:      mongo,
		gateway:    gateway,
		gate:       gate,
		httpServer: httpServer,
	}, nil
}

// Start launches the HTTP server and the rate-gate janitor. It returns
// once the server is accepting connections.
func (app *Application) Start(ctx context.Context) error {
	logging.Info().Str("addr", app.httpServer.Addr).Msg("starting server")

	cleanupCtx, cancel := context.WithCancel(context.Background())
	app.stopCleanup = cancel
	go app.runGateCleanup(cleanupCtx)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		cancel()
		return err
	case <-time.After(100 * time.Millisecond):
		logging.Info().Msg("server started")
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: HTTP first so no new
// requests arrive, then the store.
func (app *Application) Stop(ctx context.Context) error {
	logging.Info().Msg("shutting down")

	if app.stopCleanup != nil {
		app.stopCleanup()
	}

	if err := app.httpServer.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("http server shutdown error")
	}

	if err := app.mongo.Close(ctx); err != nil {
		logging.Error().Err(err).Msg("store shutdown error")
	}

	logging.Info().Msg("shutdown complete")
	return nil
}

// Addr returns the address the server listens on.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}

func (app *Application) runGateCleanup(ctx context.Context) {
	ticker := time.NewTicker(gateCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			app.gate.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}
