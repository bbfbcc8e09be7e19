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

	"github.com/kiwari-pos/floor/internal/config"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/events"
	"github.com/kiwari-pos/floor/internal/identity"
	"github.com/kiwari-pos/floor/internal/logger"
	"github.com/kiwari-pos/floor/internal/router"
	"github.com/kiwari-pos/floor/internal/ws"
)

func main() {
	cfg := config.Load()
	log := logger.Setup("floor", cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cols, err := database.ProbeBillColumns(ctx, pool)
	if err != nil {
		return err
	}
	slog.Info("bills schema probed", "columns", fmt.Sprintf("%+v", cols))

	// Redis is optional: without it every staff lookup reads Postgres.
	var cache identity.Cache
	if cfg.RedisURL != "" {
		rdb, err := identity.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, staff names are not cached", "error", err)
		} else {
			defer rdb.Close()
			cache = rdb
		}
	}
	names := identity.NewDirectory(database.New(pool), cache, identity.DefaultTTL)

	hub := ws.NewHub()
	go hub.Run(ctx)

	publishers := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(ctx, cfg.AMQPURL, events.DefaultExchange)
		if err != nil {
			slog.Warn("rabbitmq unavailable, events go to websocket clients only", "error", err)
		} else {
			defer amqpPub.Close()
			publishers = append(publishers, amqpPub)
		}
	}

	r, err := router.New(cfg, pool, cols, names, hub, publishers)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
