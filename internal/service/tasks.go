package service

import (
	"context"
	"strings"

	"taskboard/internal/domain/errors"
	"taskboard/internal/domain/models"
	"taskboard/internal/domain/repository"

	"github.com/google/uuid"
)

// TaskService owns tasks and subtasks: ownership rules and the status cascade between
// a task and its subtasks.
type TaskService struct {
	users repository.UserRepository
	tasks repository.TaskStore
	clock Clock
}

func NewTaskService(users repository.UserRepository, tasks repository.TaskStore, clock Clock) *TaskService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TaskService{users: users, tasks: tasks, clock: clock}
}

func (s *TaskService) CreateTask(ctx context.Context, callerID string, req models.CreateTaskRequest) (*models.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.AssignTo = strings.TrimSpace(req.AssignTo)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.AssignTo == callerID {
		return nil, errors.Validation("cannot assign task to yourself")
	}
	deadline, err := parseDate(req.Deadline)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, req.AssignTo); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFound("assignee not found")
		}
		return nil, err
	}

	now := s.clock.Now()
	task := &models.Task{
		ID:         uuid.NewString(),
		Title:      req.Title,
		CreatedBy:  callerID,
		AssignedTo: req.AssignTo,
		Status:     models.StatusPending,
		Deadline:   deadline,
		SubTaskIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask is visible to the task's assigner and assignee.
func (s *TaskService) GetTask(ctx context.Context, callerID, taskID string) (*models.Task, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(task, callerID) {
		return nil, errors.Forbidden("you are not a participant of this task")
	}
	return task, nil
}

func (s *TaskService) ListTasksToMe(ctx context.Context, callerID string, filter models.TaskListFilter) ([]models.Task, error) {
	q, err := buildQuery(filter)
	if err != nil {
		return nil, err
	}
	q.AssignedTo = callerID
	return s.tasks.ListTasks(ctx, q)
}

func (s *TaskService) ListTasksByMe(ctx context.Context, callerID string, filter models.TaskListFilter) ([]models.Task, error) {
	q, err := buildQuery(filter)
	if err != nil {
		return nil, err
	}
	q.CreatedBy = callerID
	return s.tasks.ListTasks(ctx, q)
}

func buildQuery(filter models.TaskListFilter) (models.TaskQuery, error) {
	var q models.TaskQuery
	var err error
	if q.DeadlineFrom, err = optionalDate(filter.StartDate); err != nil {
		return q, err
	}
	if q.DeadlineTo, err = optionalDate(filter.EndDate); err != nil {
		return q, err
	}
	if filter.Status != "" {
		status := models.Status(filter.Status)
		if !status.Valid() {
			return q, errors.Validation("status must be pending or completed")
		}
		q.Status = status
	}
	return q, nil
}

// UpdateTask lets the assigner edit title, deadline and status. Title and deadline edits
// leave the status alone.
func (s *TaskService) UpdateTask(ctx context.Context, callerID, taskID string, req models.UpdateTaskRequest) (*models.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	deadline, err := optionalDate(req.Deadline)
	if err != nil {
		return nil, err
	}

	var result *models.Task
	err = s.tasks.WithTask(ctx, taskID, func(tx repository.TaskTx) error {
		task, err := tx.Task(ctx)
		if err != nil {
			return err
		}
		if task.CreatedBy != callerID {
			return errors.Forbidden("you can only edit tasks you assigned")
		}
		if req.Title != "" {
			task.Title = req.Title
		}
		if deadline != nil {
			task.Deadline = *deadline
		}
		if req.Status != "" {
			task.Status = models.Status(req.Status)
		}
		task.UpdatedAt = s.clock.Now()
		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTask removes a task and its subtasks. Only the assigner may delete.
func (s *TaskService) DeleteTask(ctx context.Context, callerID, taskID string) error {
	return s.tasks.WithTask(ctx, taskID, func(tx repository.TaskTx) error {
		task, err := tx.Task(ctx)
		if err != nil {
			return err
		}
		if task.CreatedBy != callerID {
			return errors.Forbidden("you can only delete tasks you assigned")
		}
		return tx.DeleteTask(ctx)
	})
}

// ToggleTaskStatus is the assignee's status switch. An empty status flips the current one.
func (s *TaskService) ToggleTaskStatus(ctx context.Context, callerID, taskID, status string) (*models.Task, error) {
	next := models.Status(strings.TrimSpace(status))
	if next != "" && !next.Valid() {
		return nil, errors.Validation("status must be pending or completed")
	}

	var result *models.Task
	err := s.tasks.WithTask(ctx, taskID, func(tx repository.TaskTx) error {
		task, err := tx.Task(ctx)
		if err != nil {
			return err
		}
		if task.AssignedTo != callerID {
			return errors.Forbidden("you can only update tasks assigned to you")
		}
		if next == "" {
			task.Status = task.Status.Toggle()
		} else {
			task.Status = next
		}
		task.UpdatedAt = s.clock.Now()
		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isParticipant(task *models.Task, userID string) bool {
	return task.CreatedBy == userID || task.AssignedTo == userID
}
