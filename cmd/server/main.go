package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buildline/config"
	"buildline/internal/database"
	"buildline/internal/logger"
	"buildline/internal/router"
	"buildline/internal/service"
	"buildline/internal/ws"
	"buildline/pkg/chain"
	"buildline/pkg/checkout"
	"buildline/pkg/tracker"
)

func main() {
	cfg := config.Load()
	logger.Init(&cfg.Logger)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}

	trackerClient := tracker.NewGitHubClient(cfg.Tracker.Token, cfg.Tracker.Owner, cfg.Tracker.Repo)
	checkoutClient := checkout.NewClient(cfg.Checkout.SecretKey)
	chainClient := chain.NewClient(cfg.Chain.RPCURL)
	queueHub := ws.NewQueueHub()

	engine, queueSvc := router.Setup(cfg, db, trackerClient, checkoutClient, chainClient, queueHub)

	pollCtx, stopPoller := context.WithCancel(context.Background())
	poller := service.NewQueuePoller(queueSvc, queueHub, cfg.Queue.PollInterval)
	go poller.Run(pollCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")
	stopPoller()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
