package service

import (
	"context"
	"strings"

	"taskboard/internal/domain/errors"
	"taskboard/internal/domain/models"
	"taskboard/internal/domain/repository"

	"github.com/google/uuid"
)

// CreateSubTask adds a pending subtask. A completed parent goes back to pending.
func (s *TaskService) CreateSubTask(ctx context.Context, callerID, taskID string, req models.CreateSubTaskRequest) (*models.SubTask, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	deadline, err := parseDate(req.Deadline)
	if err != nil {
		return nil, err
	}

	var result *models.SubTask
	err = s.tasks.WithTask(ctx, taskID, func(tx repository.TaskTx) error {
		task, err := tx.Task(ctx)
		if err != nil {
			return err
		}
		if task.CreatedBy != callerID {
			return errors.Forbidden("you can only add sub-tasks to your own tasks")
		}

		now := s.clock.Now()
		sub := &models.SubTask{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			Title:     req.Title,
			Status:    models.StatusPending,
			Deadline:  deadline,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateSubTask(ctx, sub); err != nil {
			return err
		}
		if err := s.settle(ctx, tx); err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListSubTasks returns a task's subtasks in creation order to its assigner or assignee.
func (s *TaskService) ListSubTasks(ctx context.Context, callerID, taskID string) ([]models.SubTask, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(task, callerID) {
		return nil, errors.Forbidden("you are not a participant of this task")
	}
	return s.tasks.ListSubTasks(ctx, taskID)
}

func (s *TaskService) UpdateSubTask(ctx context.Context, callerID, subTaskID string, req models.UpdateSubTaskRequest) (*models.SubTask, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	deadline, err := optionalDate(req.Deadline)
	if err != nil {
		return nil, err
	}

	return s.withSubTask(ctx, subTaskID, func(tx repository.TaskTx, task *models.Task, sub *models.SubTask) error {
		if task.CreatedBy != callerID {
			return errors.Forbidden("not authorized to edit this sub-task")
		}
		if req.Title != "" {
			sub.Title = req.Title
		}
		if deadline != nil {
			sub.Deadline = *deadline
		}
		if req.Status != "" {
			sub.Status = models.Status(req.Status)
		}
		sub.UpdatedAt = s.clock.Now()
		return tx.UpdateSubTask(ctx, sub)
	})
}

// ToggleSubTaskStatus is open to both the assigner and the assignee of the parent task.
// An empty status flips the current one.
func (s *TaskService) ToggleSubTaskStatus(ctx context.Context, callerID, subTaskID, status string) (*models.SubTask, error) {
	next := models.Status(strings.TrimSpace(status))
	if next != "" && !next.Valid() {
		return nil, errors.Validation("status must be pending or completed")
	}

	return s.withSubTask(ctx, subTaskID, func(tx repository.TaskTx, task *models.Task, sub *models.SubTask) error {
		if !isParticipant(task, callerID) {
			return errors.Forbidden("not authorized to change this sub-task status")
		}
		if next == "" {
			sub.Status = sub.Status.Toggle()
		} else {
			sub.Status = next
		}
		sub.UpdatedAt = s.clock.Now()
		return tx.UpdateSubTask(ctx, sub)
	})
}

func (s *TaskService) DeleteSubTask(ctx context.Context, callerID, subTaskID string) error {
	_, err := s.withSubTask(ctx, subTaskID, func(tx repository.TaskTx, task *models.Task, sub *models.SubTask) error {
		if task.CreatedBy != callerID {
			return errors.Forbidden("not authorized to delete this sub-task")
		}
		return tx.DeleteSubTask(ctx, sub.ID)
	})
	return err
}

// withSubTask locks the parent of subTaskID, runs fn and then settles the parent status.
func (s *TaskService) withSubTask(
	ctx context.Context,
	subTaskID string,
	fn func(tx repository.TaskTx, task *models.Task, sub *models.SubTask) error,
) (*models.SubTask, error) {
	ref, err := s.tasks.GetSubTask(ctx, subTaskID)
	if err != nil {
		return nil, err
	}

	var result *models.SubTask
	err = s.tasks.WithTask(ctx, ref.TaskID, func(tx repository.TaskTx) error {
		task, err := tx.Task(ctx)
		if err != nil {
			return err
		}
		// Re-read under the lock: the subtask may have gone since the lookup.
		sub, err := tx.SubTask(ctx, subTaskID)
		if err != nil {
			return err
		}
		if err := fn(tx, task, sub); err != nil {
			return err
		}
		if err := s.settle(ctx, tx); err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFound("sub-task not found")
		}
		return nil, err
	}
	return result, nil
}

// settle recomputes the locked task's status from its subtasks and stores it when it changed.
func (s *TaskService) settle(ctx context.Context, tx repository.TaskTx) error {
	task, err := tx.Task(ctx)
	if err != nil {
		return err
	}
	subs, err := tx.SubTasks(ctx)
	if err != nil {
		return err
	}

	next := recomputeStatus(task.Status, subs)
	if next == task.Status {
		return nil
	}
	task.Status = next
	task.UpdatedAt = s.clock.Now()
	return tx.UpdateTask(ctx, task)
}

// recomputeStatus: a non-empty, fully completed list completes the task; anything else
// reopens a completed task. An empty list keeps the current status.
func recomputeStatus(current models.Status, subs []models.SubTask) models.Status {
	if len(subs) == 0 {
		return current
	}
	for _, sub := range subs {
		if sub.Status != models.StatusCompleted {
			if current == models.StatusCompleted {
				return models.StatusPending
			}
			return current
		}
	}
	return models.StatusCompleted
}
