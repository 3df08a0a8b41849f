package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskboard/internal/domain/models"
	"taskboard/internal/domain/repository"
	"taskboard/internal/notify"
)

// Reminder periodically mails every assignee a summary of their pending tasks.
type Reminder struct {
	users    repository.UserRepository
	tasks    repository.TaskStore
	notifier Dispatcher
	clock    Clock
	logger   *slog.Logger
}

func NewReminder(users repository.UserRepository, tasks repository.TaskStore, notifier Dispatcher, clock Clock, logger *slog.Logger) *Reminder {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Reminder{users: users, tasks: tasks, notifier: notifier, clock: clock, logger: logger}
}

// Run sends reminders every interval until ctx is done. A non-positive interval disables it.
func (r *Reminder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.logger.Info("pending task reminders disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := r.SendReminders(ctx)
			if err != nil {
				r.logger.Error("pending task reminders failed", slog.String("error", err.Error()))
				continue
			}
			r.logger.Info("pending task reminders sent", slog.Int("count", sent))
		}
	}
}

// SendReminders dispatches one summary per assignee with pending tasks and returns how many
// were dispatched.
func (r *Reminder) SendReminders(ctx context.Context) (int, error) {
	pending, err := r.tasks.ListTasks(ctx, models.TaskQuery{Status: models.StatusPending})
	if err != nil {
		return 0, err
	}

	type summary struct {
		pending int
		overdue int
	}
	today := dateOf(r.clock.Now())
	byAssignee := map[string]*summary{}
	var order []string
	for _, t := range pending {
		sum, ok := byAssignee[t.AssignedTo]
		if !ok {
			sum = &summary{}
			byAssignee[t.AssignedTo] = sum
			order = append(order, t.AssignedTo)
		}
		sum.pending++
		if dateOf(t.Deadline).Before(today) {
			sum.overdue++
		}
	}

	sent := 0
	for _, userID := range order {
		user, err := r.users.GetUserByID(ctx, userID)
		if err != nil {
			r.logger.Warn("reminder skipped", slog.String("user_id", userID), slog.String("error", err.Error()))
			continue
		}
		sum := byAssignee[userID]
		r.notifier.Dispatch(notify.Message{
			To:      user.Email,
			Subject: "Pending Tasks Reminder",
			Body: fmt.Sprintf("Hello %s,\n\nYou have %d pending task(s), %d of them overdue. Please review them on your dashboard.",
				user.Name, sum.pending, sum.overdue),
		})
		sent++
	}
	return sent, nil
}
