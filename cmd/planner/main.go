package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/database"
	"github.com/KenL-TW/travel-planner-pro/internal/logging"
	"github.com/KenL-TW/travel-planner-pro/internal/server"
	"github.com/KenL-TW/travel-planner-pro/internal/snapshot"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := logging.Setup(envOr("PLANNER_LOG_LEVEL", "info"))

	dbPath := envOr("PLANNER_DB_PATH", "planner.db")
	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	snapCfg := snapshot.Config{
		S3: snapshot.S3Config{
			Endpoint:  os.Getenv("PLANNER_S3_ENDPOINT"),
			Bucket:    os.Getenv("PLANNER_S3_BUCKET"),
			Region:    envOr("PLANNER_S3_REGION", "auto"),
			AccessKey: os.Getenv("PLANNER_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("PLANNER_S3_SECRET_KEY"),
		},
	}

	srv := server.New(db, snapCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	srv.Start(ctx)

	addr := ":" + envOr("PLANNER_PORT", "8080")
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	srv.Stop()
}
