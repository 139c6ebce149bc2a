package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/budget-tracker/internal/budget"
	"example.com/budget-tracker/internal/cache"
	"example.com/budget-tracker/internal/config"
	"example.com/budget-tracker/internal/database"
	"example.com/budget-tracker/internal/events"
	"example.com/budget-tracker/internal/notifications"
	"example.com/budget-tracker/internal/repository"
	"example.com/budget-tracker/internal/repository/memory"
	"example.com/budget-tracker/internal/repository/sqlite"
	"example.com/budget-tracker/internal/server"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.String("backend", cfg.Backend), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	svc := budget.NewService(store, logger, budget.Options{
		DefaultWindow: cfg.Budget.DefaultAverageMonths,
		MaxWindow:     cfg.Budget.MaxAverageMonths,
		CacheSize:     cfg.Budget.CacheSize,
		CacheTTL:      cfg.Budget.CacheTTL,
	})

	if summaries := svc.Cache(); summaries != nil {
		go cache.NewJanitor(logger, summaries).Run(ctx, cfg.Budget.CacheTTL)
	}

	hub := notifications.NewHub()
	svc.AddLocalSink(hub)

	if cfg.AMQP.Enabled() {
		client, err := events.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Error("failed to connect to AMQP", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()

		svc.AddRemoteSink(client)
		go client.Run(ctx, events.NewHandler(svc, logger))
		logger.Info("budget events enabled", slog.String("exchange", cfg.AMQP.Exchange), slog.String("origin", client.Origin()))
	}

	e := server.New(cfg, logger, server.Deps{Store: store, Service: svc, Hub: hub})
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		logger.Info("http server starting", slog.String("addr", httpServer.Addr), slog.String("backend", cfg.Backend))
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.MigratePostgres(db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return repository.NewPostgresStore(db), nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(db); err != nil {
			db.Close()
			return nil, err
		}
		return sqlite.New(db), nil

	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
