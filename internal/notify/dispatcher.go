package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskboard/internal/metrics"
	"taskboard/internal/pkg/queue"
)

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
}

// Dispatcher delivers messages in the background. Dispatch never blocks and never fails
// the caller; delivery errors and drops are logged.
type Dispatcher struct {
	notifier Notifier
	queue    *queue.Queue
	cfg      DispatcherConfig
	logger   *slog.Logger
}

func NewDispatcher(notifier Notifier, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	return &Dispatcher{
		notifier: notifier,
		queue:    queue.New(logger, cfg.Workers, cfg.QueueSize),
		cfg:      cfg,
		logger:   logger,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	return d.queue.Shutdown(timeout)
}

func (d *Dispatcher) Stats() queue.Stats {
	return d.queue.Stats()
}

func (d *Dispatcher) Dispatch(msg Message) {
	err := d.queue.Enqueue(func(ctx context.Context) error {
		return d.deliver(ctx, msg)
	})
	if err != nil {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warn("notification dropped",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	var lastErr error
	for attempt := 0; attempt <= d.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.Backoff * time.Duration(attempt)):
			}
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		lastErr = d.notifier.Send(sendCtx, msg)
		cancel()
		if lastErr == nil {
			metrics.Notifications.WithLabelValues("sent").Inc()
			return nil
		}
		d.logger.Warn("notification attempt failed",
			slog.String("to", msg.To),
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()))
	}

	metrics.Notifications.WithLabelValues("failed").Inc()
	return fmt.Errorf("deliver %q to %s: %w", msg.Subject, msg.To, lastErr)
}
