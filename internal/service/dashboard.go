package service

import (
	"context"

	"taskboard/internal/domain/models"
)

// Dashboard counts the caller's tasks. A task is overdue when it is pending and its
// deadline date is before today's date on the server clock.
func (s *TaskService) Dashboard(ctx context.Context, callerID string) (*models.DashboardStats, error) {
	toMe, err := s.tasks.ListTasks(ctx, models.TaskQuery{AssignedTo: callerID})
	if err != nil {
		return nil, err
	}
	byMe, err := s.tasks.ListTasks(ctx, models.TaskQuery{CreatedBy: callerID})
	if err != nil {
		return nil, err
	}

	today := dateOf(s.clock.Now())
	stats := &models.DashboardStats{}

	for _, t := range toMe {
		stats.TasksToMe.Total++
		switch t.Status {
		case models.StatusPending:
			stats.TasksToMe.Pending++
			if dateOf(t.Deadline).Before(today) {
				stats.TasksToMe.Overdue++
			}
		case models.StatusCompleted:
			stats.TasksToMe.Completed++
		}
	}
	for _, t := range byMe {
		stats.TasksByMe.Total++
		switch t.Status {
		case models.StatusPending:
			stats.TasksByMe.Pending++
		case models.StatusCompleted:
			stats.TasksByMe.Completed++
		}
	}
	return stats, nil
}
