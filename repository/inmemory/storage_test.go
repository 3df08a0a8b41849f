package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskboard/internal/domain/errors"
	"taskboard/internal/domain/models"
	"taskboard/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedTask(t *testing.T, s *Storage, id, by, to string, deadline string) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:         id,
		Title:      "task " + id,
		CreatedBy:  by,
		AssignedTo: to,
		Status:     models.StatusPending,
		Deadline:   day(deadline),
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

func TestNewStorage(t *testing.T) {
	storage := NewStorage()

	assert.NotNil(t, storage)
	assert.Empty(t, storage.users)
	assert.Empty(t, storage.tasks)
	assert.Empty(t, storage.subtasks)
}

func TestStorageCreateUser(t *testing.T) {
	tests := []struct {
		name  string
		user  *models.User
		setup func(*Storage)
		want  struct {
			err   error
			email string
		}
	}{
		{
			name:  "successful user creation",
			user:  &models.User{ID: "u1", Name: "Alice", Email: "Alice@Example.com "},
			setup: func(s *Storage) {},
			want: struct {
				err   error
				email string
			}{email: "alice@example.com"},
		},
		{
			name: "duplicate email differing only in case",
			user: &models.User{ID: "u2", Name: "Other", Email: "ALICE@example.com"},
			setup: func(s *Storage) {
				s.users["u1"] = models.User{ID: "u1", Email: "alice@example.com"}
			},
			want: struct {
				err   error
				email string
			}{err: errors.ErrConflict},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStorage()
			tt.setup(s)

			err := s.CreateUser(context.Background(), tt.user)
			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
				return
			}
			require.NoError(t, err)

			got, err := s.GetUserByEmail(context.Background(), tt.want.email)
			require.NoError(t, err)
			assert.Equal(t, tt.user.ID, got.ID)
		})
	}
}

func TestStorageUpdateUser(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u2", Email: "b@example.com"}))

	err := s.UpdateUser(ctx, &models.User{ID: "u2", Email: "A@example.com"})
	assert.ErrorIs(t, err, errors.ErrConflict)

	err = s.UpdateUser(ctx, &models.User{ID: "missing", Email: "c@example.com"})
	assert.ErrorIs(t, err, errors.ErrNotFound)

	expiry := time.Now().Add(time.Minute)
	u := &models.User{ID: "u2", Email: "b@example.com", OTP: "123456", OTPExpiry: &expiry}
	require.NoError(t, s.UpdateUser(ctx, u))

	// Stored copies are isolated from the caller's pointer.
	*u.OTPExpiry = time.Time{}
	got, err := s.GetUserByID(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, got.OTPExpiry.Equal(expiry))
}

func TestStorageListTasks(t *testing.T) {
	s := NewStorage()
	seedTask(t, s, "t1", "a", "b", "2025-01-10")
	seedTask(t, s, "t2", "a", "b", "2025-01-05")
	seedTask(t, s, "t3", "b", "a", "2025-01-07")
	done := seedTask(t, s, "t4", "a", "b", "2025-01-20")
	done.Status = models.StatusCompleted
	s.tasks["t4"] = *done

	from, to := day("2025-01-05"), day("2025-01-10")

	tests := []struct {
		name  string
		query models.TaskQuery
		want  struct {
			ids []string
		}
	}{
		{
			name:  "assigned to b ordered by deadline",
			query: models.TaskQuery{AssignedTo: "b"},
			want: struct {
				ids []string
			}{ids: []string{"t2", "t1", "t4"}},
		},
		{
			name:  "created by b",
			query: models.TaskQuery{CreatedBy: "b"},
			want: struct {
				ids []string
			}{ids: []string{"t3"}},
		},
		{
			name:  "inclusive deadline range",
			query: models.TaskQuery{AssignedTo: "b", DeadlineFrom: &from, DeadlineTo: &to},
			want: struct {
				ids []string
			}{ids: []string{"t2", "t1"}},
		},
		{
			name:  "status filter",
			query: models.TaskQuery{Status: models.StatusCompleted},
			want: struct {
				ids []string
			}{ids: []string{"t4"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := s.ListTasks(context.Background(), tt.query)
			require.NoError(t, err)

			ids := make([]string, 0, len(tasks))
			for _, task := range tasks {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.want.ids, ids)
		})
	}
}

func TestStorageWithTaskCommitsSubTasks(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	seedTask(t, s, "t1", "a", "b", "2025-01-10")

	err := s.WithTask(ctx, "t1", func(tx repository.TaskTx) error {
		for _, id := range []string{"s1", "s2"} {
			if err := tx.CreateSubTask(ctx, &models.SubTask{ID: id, Title: "sub " + id, Status: models.StatusPending}); err != nil {
				return err
			}
		}
		subs, err := tx.SubTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, subs, 2)
		return nil
	})
	require.NoError(t, err)

	task, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, task.SubTaskIDs)

	sub, err := s.GetSubTask(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "t1", sub.TaskID)

	require.NoError(t, s.WithTask(ctx, "t1", func(tx repository.TaskTx) error {
		return tx.DeleteSubTask(ctx, "s1")
	}))
	subs, err := s.ListSubTasks(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "s2", subs[0].ID)
	_, err = s.GetSubTask(ctx, "s1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestStorageWithTaskRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	seedTask(t, s, "t1", "a", "b", "2025-01-10")

	err := s.WithTask(ctx, "t1", func(tx repository.TaskTx) error {
		task, err := tx.Task(ctx)
		require.NoError(t, err)
		task.Status = models.StatusCompleted
		require.NoError(t, tx.UpdateTask(ctx, task))
		require.NoError(t, tx.CreateSubTask(ctx, &models.SubTask{ID: "s1", Status: models.StatusPending}))
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	task, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Empty(t, task.SubTaskIDs)
	_, err = s.GetSubTask(ctx, "s1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestStorageWithTaskDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	seedTask(t, s, "t1", "a", "b", "2025-01-10")
	require.NoError(t, s.WithTask(ctx, "t1", func(tx repository.TaskTx) error {
		return tx.CreateSubTask(ctx, &models.SubTask{ID: "s1", Status: models.StatusPending})
	}))

	require.NoError(t, s.WithTask(ctx, "t1", func(tx repository.TaskTx) error {
		return tx.DeleteTask(ctx)
	}))

	_, err := s.GetTask(ctx, "t1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = s.GetSubTask(ctx, "s1")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	err = s.WithTask(ctx, "t1", func(tx repository.TaskTx) error { return nil })
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestStorageTxSubTaskScopedToTask(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	seedTask(t, s, "t1", "a", "b", "2025-01-10")
	seedTask(t, s, "t2", "a", "b", "2025-01-10")
	require.NoError(t, s.WithTask(ctx, "t2", func(tx repository.TaskTx) error {
		return tx.CreateSubTask(ctx, &models.SubTask{ID: "s9", Status: models.StatusPending})
	}))

	err := s.WithTask(ctx, "t1", func(tx repository.TaskTx) error {
		_, err := tx.SubTask(ctx, "s9")
		return err
	})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
