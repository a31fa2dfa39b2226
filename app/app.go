// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/danielhkuo/live-poll/cliparse"
	"github.com/danielhkuo/live-poll/db"
	"github.com/danielhkuo/live-poll/middleware"
	"github.com/danielhkuo/live-poll/realtime"
	"github.com/danielhkuo/live-poll/router"
	"github.com/danielhkuo/live-poll/store"
	"github.com/danielhkuo/live-poll/voting"
)

// App holds every long-lived component. Construction wires them; nothing
// is looked up globally.
type App struct {
	Store      *store.Store
	Aggregator *voting.Aggregator
	Registry   *realtime.Registry
	Hub        *realtime.Hub
	Dispatcher *realtime.Dispatcher
	Service    *voting.Service
	Handler    http.Handler
}

// New builds the component graph over an open database
func New(conn *sql.DB, cfg cliparse.Config) *App {
	st := store.New(conn)
	aggregator := voting.NewAggregator(st, st)
	registry := realtime.NewRegistry(st)
	hub := realtime.NewHub(registry)
	dispatcher := realtime.NewDispatcher(aggregator, hub)
	service := voting.NewService(st, st, st, dispatcher,
		voting.WithRetractionWindow(cfg.RetractionWindow))

	mux := router.NewRouter(router.Deps{
		Store:      st,
		Service:    service,
		Aggregator: aggregator,
		Notifier:   dispatcher,
		Hub:        hub,
	}, cfg)

	return &App{
		Store:      st,
		Aggregator: aggregator,
		Registry:   registry,
		Hub:        hub,
		Dispatcher: dispatcher,
		Service:    service,
		Handler:    middleware.CORS(mux),
	}
}

// Close drains pending broadcasts, then disconnects every client
func (a *App) Close(ctx context.Context) error {
	err := a.Dispatcher.Close(ctx)
	a.Hub.Close()
	return err
}

// OpenDatabase opens the configured database and creates the schema
func OpenDatabase(cfg cliparse.Config) (*sql.DB, error) {
	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	slog.Info("database schema ready", "type", cfg.DatabaseType)
	return conn, nil
}

// CreateApp returns the fx application: database, components and HTTP
// server, each with its start and stop hooks
func CreateApp(cfg cliparse.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.SlogLogger{Logger: slog.Default()}
		}),
		fx.Provide(newDatabase),
		fx.Provide(newApp),
		fx.Provide(newServer),
		fx.Invoke(func(*http.Server) {}),
	)
}

func newDatabase(lc fx.Lifecycle, cfg cliparse.Config) (*sql.DB, error) {
	conn, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return conn.Close()
		},
	})
	return conn, nil
}

func newApp(lc fx.Lifecycle, conn *sql.DB, cfg cliparse.Config) *App {
	a := New(conn, cfg)
	lc.Append(fx.Hook{
		OnStop: a.Close,
	})
	return a
}

func newServer(lc fx.Lifecycle, a *App, cfg cliparse.Config) *http.Server {
	server := &http.Server{
		Handler:           a.Handler,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			slog.Info("listening", "addr", ln.Addr().String())

			go func() {
				err := server.Serve(ln)
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			slog.Info("shutting down server")
			// Hijacked WebSocket connections are closed by App.Close
			return server.Shutdown(ctx)
		},
	})
	return server
}
