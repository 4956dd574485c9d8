package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"liftkeeper/internal/app/server/api"
	"liftkeeper/internal/app/server/config"
	"liftkeeper/internal/infrastructure/storage/filestore"
	"liftkeeper/internal/infrastructure/storage/postgres"
	"liftkeeper/internal/utils/logger"
)

func main() {
	conf := config.MustLoad()
	log := logger.NewWithLevel(conf.Env, conf.Logger.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.New(ctx, conf, log)
	if err != nil {
		log.Error("failed to init storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	files, err := filestore.New(conf.Storage.Root, conf.Storage.PublicBaseURL, log)
	if err != nil {
		log.Error("failed to init file storage", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              conf.Server.RunAddress,
		Handler:           api.New(storage.Gateway(), files, conf.Server.CORSOrigins, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "address", server.Addr, "env", conf.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}
