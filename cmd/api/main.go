package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"propertyhub/internal/config"
	"propertyhub/internal/database"
	"propertyhub/internal/eventlog"
	"propertyhub/internal/modules/notification"
	"propertyhub/internal/pkg/logger"
	"propertyhub/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "propertyhub-api")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal("migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, err := eventlog.Open(ctx, cfg.Journal, lg)
	if err != nil {
		lg.Fatal("open event journal", zap.Error(err))
	}
	var j notification.Journal
	if journal != nil {
		j = journal
	}

	app := server.New(cfg, db, j, lg)
	srv := server.NewServer(cfg.HTTPAddr, app.Router, lg)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	case err := <-errCh:
		lg.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		lg.Warn("http server shutdown", zap.Error(err))
	}
	app.Registry.CloseAll()

	if journal != nil {
		if err := journal.Close(); err != nil {
			lg.Warn("close event journal", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	lg.Info("stopped")
}
