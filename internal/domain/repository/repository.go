package repository

import (
	"context"

	"taskboard/internal/domain/models"
)

// UserRepository is the user directory. Emails are stored lower-cased and are unique;
// CreateUser and UpdateUser return a Conflict error on a duplicate email.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// TaskStore persists tasks and their subtasks. Every mutation of an existing task or its
// subtasks goes through WithTask.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	// ListTasks returns matching tasks ordered by deadline, then creation time.
	ListTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error)
	GetSubTask(ctx context.Context, id string) (*models.SubTask, error)
	// ListSubTasks returns the subtasks of a task in creation order.
	ListSubTasks(ctx context.Context, taskID string) ([]models.SubTask, error)

	// WithTask runs fn as one unit of work serialized on taskID. Changes made through tx
	// become visible together when fn returns nil and are discarded otherwise.
	// It returns a NotFound error when the task does not exist.
	WithTask(ctx context.Context, taskID string, fn func(tx TaskTx) error) error
}

// TaskTx is the view of a single locked task inside WithTask.
type TaskTx interface {
	Task(ctx context.Context) (*models.Task, error)
	SubTasks(ctx context.Context) ([]models.SubTask, error)
	// SubTask returns a NotFound error unless id is a subtask of the locked task.
	SubTask(ctx context.Context, id string) (*models.SubTask, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	// CreateSubTask stores sub and appends its id to the task's subtask list.
	CreateSubTask(ctx context.Context, sub *models.SubTask) error
	UpdateSubTask(ctx context.Context, sub *models.SubTask) error
	// DeleteSubTask removes the subtask and its id from the task's subtask list.
	DeleteSubTask(ctx context.Context, id string) error
	// DeleteTask removes the task together with all of its subtasks.
	DeleteTask(ctx context.Context) error
}
