package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/internal/domain/repository"
	"taskboard/internal/logger"
	"taskboard/internal/notify"
	"taskboard/internal/server"
	"taskboard/internal/service"
	db "taskboard/repository/db"
	inmemory "taskboard/repository/inmemory"
)

// Service is the part of the HTTP API main drives.
type Service interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func main() {
	cfg := server.ReadConfig()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	logger.Info("task service starting", "addr", cfg.ListenAddr())
	if cfg.UsesDefaultJWTSecret() {
		logger.Warn("JWT_SECRET is not set, using the built-in development secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := RunMigrations(cfg); err != nil {
		logger.Warn("migrations not applied", "error", err)
	} else {
		logger.Info("migrations applied")
	}

	users, tasks, closeStore, err := InitializeRepositories(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer closeStore()

	dispatcher := NewDispatcher(cfg)
	dispatcher.Start(ctx)

	clock := service.SystemClock{}
	reminder := service.NewReminder(users, tasks, dispatcher, clock, logger.With("component", "reminder"))
	reminderCtx, stopReminder := context.WithCancel(ctx)
	defer stopReminder()
	go reminder.Run(reminderCtx, cfg.ReminderInterval.Duration)

	limiter := server.NewRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() {
		if err := limiter.Close(); err != nil {
			logger.Warn("failed to close rate limiter", "error", err)
		}
	}()

	api := server.NewTaskAPI(cfg,
		service.NewAuthService(users, dispatcher, clock),
		service.NewTaskService(users, tasks, clock),
		limiter,
	)
	if api == nil {
		logger.Fatal("failed to initialize API")
	}

	sigChan, serverErr := StartServer(api, cfg)

	select {
	case sig := <-sigChan:
		if err := HandleShutdown(api, sig, cfg.ShutdownTimeout.Duration); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		} else {
			logger.Info("graceful shutdown complete")
		}
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	stopReminder()
	if err := dispatcher.Shutdown(cfg.ShutdownTimeout.Duration); err != nil {
		logger.Warn("notification queue did not drain", "error", err)
	}
	cancel()
	logger.Info("task service stopped")
}

func RunMigrations(cfg *server.Config) error {
	return db.Migration(cfg.DBStr, cfg.MigratePath)
}

// InitializeRepositories connects to Postgres and falls back to in-memory storage when the
// database is unreachable. The returned func releases the connection pool.
func InitializeRepositories(ctx context.Context, cfg *server.Config) (repository.UserRepository, repository.TaskStore, func(), error) {
	store, err := db.NewStorage(ctx, cfg.DBStr)
	if err != nil {
		logger.Warn("database unavailable, using in-memory storage", "error", err)
		inmem := inmemory.NewStorage()
		return inmem, inmem, func() {}, nil
	}
	return store, store, store.Close, nil
}

// NewDispatcher sends mail over SMTP when it is configured and logs messages otherwise.
func NewDispatcher(cfg *server.Config) *notify.Dispatcher {
	log := logger.With("component", "notify")

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	emailCfg := notify.EmailConfig{
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	}
	if emailCfg.Configured() {
		notifier = notify.NewEmailNotifier(emailCfg, log)
	} else {
		log.Info("smtp not configured, notifications are logged only")
	}

	return notify.NewDispatcher(notifier, notify.DispatcherConfig{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.NotifyTimeout.Duration,
		Retries:   cfg.NotifyRetries,
	}, log)
}

func StartServer(api Service, cfg *server.Config) (chan os.Signal, chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr())
		if err := api.Start(); err != nil {
			serverErr <- err
		}
	}()
	return sigChan, serverErr
}

func HandleShutdown(api Service, sig os.Signal, timeout time.Duration) error {
	logger.Info("shutdown signal received", "signal", sig.String())
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return api.Shutdown(ctx)
}
