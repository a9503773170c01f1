// Package main provides the entry point for the Backlog access-control
// server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/backlogmedia/backlog/internal/access"
	"github.com/backlogmedia/backlog/internal/account"
	"github.com/backlogmedia/backlog/internal/collection"
	"github.com/backlogmedia/backlog/internal/config"
	"github.com/backlogmedia/backlog/internal/gateway"
	"github.com/backlogmedia/backlog/internal/media"
	"github.com/backlogmedia/backlog/internal/metrics"
	"github.com/backlogmedia/backlog/internal/middleware"
	"github.com/backlogmedia/backlog/internal/notify"
	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/token"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg)

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close database", slog.Any("error", err))
		}
	}()

	if err := metrics.Init(prometheus.DefaultRegisterer); err != nil {
		logger.Error("init metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password, cfg.PublicURL)
	} else {
		logger.Info("no SMTP relay configured, notifications go to the log")
		notifier = notify.NewLogNotifier(logger)
	}

	tokens := token.NewManager(store)
	resolver := access.NewResolver(store)

	accountService := account.NewService(store, tokens, notifier, logger, account.TTLs{
		Session: cfg.SessionTTL,
		Confirm: cfg.ConfirmTTL,
		Reset:   cfg.ResetTTL,
	})
	gatewayService := gateway.NewService(tokens, resolver, store, cfg.ContentTokenTTL)

	accountHandler := account.NewHandler(accountService, logger)
	gatewayHandler := gateway.NewHandler(gatewayService, logger)
	accessHandler := access.NewHandler(resolver, logger)
	mediaHandler := media.NewHandler(store, resolver, logger)
	collectionHandler := collection.NewHandler(store, logger)

	router := newRouter(routerParams{
		Logger:            logger,
		Config:            cfg,
		Store:             store,
		Tokens:            tokens,
		AccountHandler:    accountHandler,
		GatewayHandler:    gatewayHandler,
		AccessHandler:     accessHandler,
		MediaHandler:      mediaHandler,
		CollectionHandler: collectionHandler,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    cfg.MetricsListenAddr,
		Handler: metrics.Handler(),
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.ListenAddr), slog.String("version", version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	go func() {
		logger.Info("starting metrics server", slog.String("addr", cfg.MetricsListenAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown", slog.Any("error", err))
	}
}

// newLogger builds the slog logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

type routerParams struct {
	Logger            *slog.Logger
	Config            *config.Config
	Store             *storage.SQLiteStorage
	Tokens            *token.Manager
	AccountHandler    *account.Handler
	GatewayHandler    *gateway.Handler
	AccessHandler     *access.Handler
	MediaHandler      *media.Handler
	CollectionHandler *collection.Handler
}

// newRouter assembles the public HTTP surface.
func newRouter(p routerParams) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.MaxBodySize(p.Config.MaxBodySize))
	r.Use(middleware.HTTPLogging(p.Logger))
	r.Use(metrics.Middleware)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(p.Store))

	r.Mount("/user", p.AccountHandler.Routes())
	r.Mount("/api/content", gateway.NewRouter(p.GatewayHandler))

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(p.Tokens))
		r.Mount("/api/media", p.MediaHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Mount("/api/collection", p.CollectionHandler.Routes())
			r.Mount("/api/permissions", p.AccessHandler.Routes())
		})
	})

	return r
}

// healthHandler returns OK if the process is alive
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Response write errors are unrecoverable
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler returns OK if the service is ready to serve requests (DB connected)
func readyHandler(store *storage.SQLiteStorage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			//nolint:errcheck
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		w.Write([]byte(`{"status":"ok"}`))
	}
}
