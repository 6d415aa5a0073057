// Package app wires the poll room together and runs its HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pollroom/internal/api"
	"pollroom/internal/archive"
	"pollroom/internal/chat"
	"pollroom/internal/config"
	"pollroom/internal/hub"
	"pollroom/internal/moderation"
	"pollroom/internal/poll"
	"pollroom/internal/websocket"
	"pollroom/pkg/interfaces"
)

// Application owns every long-lived component of one room.
type Application struct {
	config     *config.Config
	logger     *slog.Logger
	store      *archive.Store
	room       *hub.Hub
	apiServer  *api.Server
	httpServer *http.Server
	listener   net.Listener
}

// NewApplication builds the components in dependency order:
// archive, hub, websocket handler, API, HTTP server.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{config: cfg, logger: logger}

	var pollArchive interfaces.PollArchive
	if cfg.Archive.Enabled {
		storeCfg := archive.DefaultConfig()
		storeCfg.Path = cfg.Archive.Path
		store, err := archive.Open(storeCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open poll archive: %w", err)
		}
		app.store = store
		pollArchive = store
	}

	bans := moderation.NewBanList(cfg.Moderation.EnforceBans, cfg.Moderation.BannedStudents)
	app.room = hub.New(hub.Config{
		Poll: poll.Config{
			Limits: poll.Limits{
				Default: cfg.Poll.DefaultTimeLimit,
				Min:     cfg.Poll.MinTimeLimit,
				Max:     cfg.Poll.MaxTimeLimit,
			},
		},
		Chat: chat.Config{
			MaxLength:          cfg.Chat.MaxLength,
			RateLimitPerMinute: cfg.Chat.RateLimitPerMinute,
		},
		Bans:           bans,
		Archive:        pollArchive,
		ArchiveTimeout: cfg.Archive.Timeout,
		Logger:         logger,
	})

	wsHandler := websocket.NewHandler(app.room, websocket.Options{
		PingInterval:   cfg.WebSocket.PingInterval,
		ReadTimeout:    cfg.WebSocket.ReadTimeout,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		BufferSize:     cfg.WebSocket.BufferSize,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	}, logger)

	app.apiServer = api.NewServer(app.room, pollArchive, logger)

	router := mux.NewRouter()
	router.Handle("/ws", wsHandler)
	router.PathPrefix("/").Handler(app.apiServer)

	app.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return app, nil
}

// Start launches the hub, then begins accepting HTTP connections. It returns
// once the listener is bound.
func (app *Application) Start(ctx context.Context) error {
	if err := app.room.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	ln, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		_ = app.room.Stop()
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	app.listener = ln
	app.logger.Info("pollroom listening", "addr", ln.Addr().String())

	go func() {
		if err := app.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("http server stopped", "error", err)
		}
	}()
	return nil
}

// Stop shuts down in reverse order: HTTP, hub, archive.
func (app *Application) Stop(ctx context.Context) error {
	app.logger.Info("shutting down pollroom")

	var errs []error
	if err := app.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := app.room.Stop(); err != nil && !errors.Is(err, hub.ErrHubNotRunning) {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("archive shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	app.logger.Info("pollroom shutdown complete")
	return nil
}

// Addr returns the bound listener address, or the configured one before Start.
func (app *Application) Addr() string {
	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}

// shutdownTimeout bounds Stop when the caller has no deadline of its own.
const shutdownTimeout = 30 * time.Second

// Shutdown stops the application with the default timeout.
func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Stop(ctx)
}
