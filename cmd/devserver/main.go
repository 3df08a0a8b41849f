// Command devserver runs the task API on in-memory storage with notifications written to
// the log. Nothing survives a restart.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"taskboard/internal/logger"
	"taskboard/internal/notify"
	"taskboard/internal/server"
	"taskboard/internal/service"
	storage "taskboard/repository/inmemory"
)

func main() {
	cfg := server.ReadConfig()
	logger.Init("debug", false)
	if cfg.UsesDefaultJWTSecret() {
		logger.Warn("JWT_SECRET is not set, using the built-in development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := storage.NewStorage()
	log := logger.With("component", "notify")
	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(log), notify.DispatcherConfig{Workers: 1, QueueSize: 50}, log)
	dispatcher.Start(ctx)

	api := server.NewTaskAPI(cfg,
		service.NewAuthService(store, dispatcher, nil),
		service.NewTaskService(store, store, nil),
		nil,
	)
	if api == nil {
		logger.Fatal("failed to create API server")
	}

	go func() {
		<-ctx.Done()
		if err := api.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("dev server running", "addr", cfg.ListenAddr())
	if err := api.Start(); err != nil {
		logger.Fatal("server error", "error", err)
	}
	_ = dispatcher.Shutdown(cfg.ShutdownTimeout.Duration)
}
