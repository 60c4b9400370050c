// Package main is the entry point for the arbengine execution worker. It
// wires the durable store, cooldown registry, execution coordinator,
// settlement watchers, and reporter sink into one engine, starts the inbound
// queue consumer, and serves the read-only admin surface alongside it.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evetabi/arbengine/internal/adminapi"
	"github.com/evetabi/arbengine/internal/config"
	"github.com/evetabi/arbengine/internal/engine"
	"github.com/evetabi/arbengine/internal/gateway"
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting arbengine worker", "env", cfg.Server.Env, "queue", cfg.Engine.QueueName)

	// ── 2. Provider gateway ───────────────────────────────────────────────────
	bridge := gateway.NewBridgeClient(cfg.Provider.BridgeURL, cfg.Provider.CallTimeout)

	// ── 3. Engine ─────────────────────────────────────────────────────────────
	eng, err := engine.New(cfg, bridge, logger)
	if err != nil {
		logger.Error("engine construction failed", "err", err)
		os.Exit(1)
	}

	// ── 4. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start pings the store and hydrates cooldowns; an unreachable store at
	// boot is fatal.
	if err = eng.Start(ctx); err != nil {
		logger.Error("engine start failed", "err", err)
		os.Exit(1)
	}

	// ── 5. Admin HTTP surface ─────────────────────────────────────────────────
	router := adminapi.SetupRouter(adminapi.Deps{
		Cooldown: eng.Cooldown,
		Exposure: eng.Exposure,
		Store:    eng.Store,
		Cfg:      cfg,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.AdminPort,
		Handler: router,
	}

	go func() {
		logger.Info("admin http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server error", "err", err)
			stop()
		}
	}()

	// ── 6. Graceful shutdown ──────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin shutdown error", "err", err)
	}

	eng.Store.Close()
	logger.Info("worker stopped cleanly")
}
