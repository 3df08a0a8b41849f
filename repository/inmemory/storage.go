package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"taskboard/internal/domain/errors"
	"taskboard/internal/domain/models"
	"taskboard/internal/domain/repository"
)

// Storage keeps users, tasks and subtasks in memory. Task mutations are staged per
// WithTask call and applied in one step, so readers never see half of a unit of work.
type Storage struct {
	mu       sync.RWMutex
	users    map[string]models.User
	tasks    map[string]models.Task
	subtasks map[string]models.SubTask

	locksMu   sync.Mutex
	taskLocks map[string]*sync.Mutex
}

func NewStorage() *Storage {
	return &Storage{
		users:     make(map[string]models.User),
		tasks:     make(map[string]models.Task),
		subtasks:  make(map[string]models.SubTask),
		taskLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, exists := s.users[user.ID]; exists {
		return errors.Conflict("user already exists")
	}
	if s.emailTaken(user.Email, user.ID) {
		return errors.Conflict("email already exists")
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, errors.NotFound("user not found")
	}
	u := cloneUser(user)
	return &u, nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if user.Email == email {
			u := cloneUser(user)
			return &u, nil
		}
	}
	return nil, errors.NotFound("user not found")
}

func (s *Storage) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; !exists {
		return errors.NotFound("user not found")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if s.emailTaken(user.Email, user.ID) {
		return errors.Conflict("email already exists")
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *Storage) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *Storage) emailTaken(email, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Storage) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return errors.Conflict("task already exists")
	}
	if task.SubTaskIDs == nil {
		task.SubTaskIDs = []string{}
	}
	s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (s *Storage) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	if !exists {
		return nil, errors.NotFound("task not found")
	}
	t := cloneTask(task)
	return &t, nil
}

func (s *Storage) ListTasks(_ context.Context, q models.TaskQuery) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := []models.Task{}
	for _, t := range s.tasks {
		if matches(t, q) {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].Deadline.Equal(tasks[j].Deadline) {
			return tasks[i].Deadline.Before(tasks[j].Deadline)
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func matches(t models.Task, q models.TaskQuery) bool {
	if q.AssignedTo != "" && t.AssignedTo != q.AssignedTo {
		return false
	}
	if q.CreatedBy != "" && t.CreatedBy != q.CreatedBy {
		return false
	}
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if q.DeadlineFrom != nil && t.Deadline.Before(*q.DeadlineFrom) {
		return false
	}
	if q.DeadlineTo != nil && t.Deadline.After(*q.DeadlineTo) {
		return false
	}
	return true
}

func (s *Storage) GetSubTask(_ context.Context, id string) (*models.SubTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.subtasks[id]
	if !exists {
		return nil, errors.NotFound("sub-task not found")
	}
	return &sub, nil
}

func (s *Storage) ListSubTasks(_ context.Context, taskID string) ([]models.SubTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, errors.NotFound("task not found")
	}
	subs := make([]models.SubTask, 0, len(task.SubTaskIDs))
	for _, id := range task.SubTaskIDs {
		if sub, ok := s.subtasks[id]; ok {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (s *Storage) WithTask(ctx context.Context, taskID string, fn func(tx repository.TaskTx) error) error {
	lock := s.taskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.begin(taskID)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *Storage) taskLock(taskID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.taskLocks[taskID]
	if !ok {
		lock = &sync.Mutex{}
		s.taskLocks[taskID] = lock
	}
	return lock
}

func (s *Storage) begin(taskID string) (*taskTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, errors.NotFound("task not found")
	}
	tx := &taskTx{
		task:    cloneTask(task),
		subs:    make(map[string]models.SubTask, len(task.SubTaskIDs)),
		removed: map[string]bool{},
	}
	for _, id := range task.SubTaskIDs {
		if sub, ok := s.subtasks[id]; ok {
			tx.subs[id] = sub
		}
	}
	return tx, nil
}

func (s *Storage) commit(tx *taskTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.deleted {
		for _, id := range tx.original {
			delete(s.subtasks, id)
		}
		for id := range tx.subs {
			delete(s.subtasks, id)
		}
		delete(s.tasks, tx.task.ID)

		s.locksMu.Lock()
		delete(s.taskLocks, tx.task.ID)
		s.locksMu.Unlock()
		return
	}

	for id := range tx.removed {
		delete(s.subtasks, id)
	}
	for id, sub := range tx.subs {
		s.subtasks[id] = sub
	}
	s.tasks[tx.task.ID] = cloneTask(tx.task)
}

type taskTx struct {
	task     models.Task
	subs     map[string]models.SubTask
	removed  map[string]bool
	original []string
	deleted  bool
}

func (tx *taskTx) Task(_ context.Context) (*models.Task, error) {
	if tx.deleted {
		return nil, errors.NotFound("task not found")
	}
	t := cloneTask(tx.task)
	return &t, nil
}

func (tx *taskTx) SubTasks(_ context.Context) ([]models.SubTask, error) {
	subs := make([]models.SubTask, 0, len(tx.task.SubTaskIDs))
	for _, id := range tx.task.SubTaskIDs {
		if sub, ok := tx.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (tx *taskTx) SubTask(_ context.Context, id string) (*models.SubTask, error) {
	sub, ok := tx.subs[id]
	if !ok {
		return nil, errors.NotFound("sub-task not found")
	}
	return &sub, nil
}

func (tx *taskTx) UpdateTask(_ context.Context, task *models.Task) error {
	if task.ID != tx.task.ID {
		return errors.Validation("task id mismatch")
	}
	// The subtask list is owned by CreateSubTask and DeleteSubTask.
	ids := tx.task.SubTaskIDs
	tx.task = cloneTask(*task)
	tx.task.SubTaskIDs = ids
	return nil
}

func (tx *taskTx) CreateSubTask(_ context.Context, sub *models.SubTask) error {
	if _, exists := tx.subs[sub.ID]; exists {
		return errors.Conflict("sub-task already exists")
	}
	sub.TaskID = tx.task.ID
	tx.subs[sub.ID] = *sub
	delete(tx.removed, sub.ID)
	tx.task.SubTaskIDs = append(append([]string{}, tx.task.SubTaskIDs...), sub.ID)
	return nil
}

func (tx *taskTx) UpdateSubTask(_ context.Context, sub *models.SubTask) error {
	if _, exists := tx.subs[sub.ID]; !exists {
		return errors.NotFound("sub-task not found")
	}
	sub.TaskID = tx.task.ID
	tx.subs[sub.ID] = *sub
	return nil
}

func (tx *taskTx) DeleteSubTask(_ context.Context, id string) error {
	if _, exists := tx.subs[id]; !exists {
		return errors.NotFound("sub-task not found")
	}
	delete(tx.subs, id)
	tx.removed[id] = true

	ids := make([]string, 0, len(tx.task.SubTaskIDs))
	for _, sid := range tx.task.SubTaskIDs {
		if sid != id {
			ids = append(ids, sid)
		}
	}
	tx.task.SubTaskIDs = ids
	return nil
}

func (tx *taskTx) DeleteTask(_ context.Context) error {
	tx.original = append(tx.original, tx.task.SubTaskIDs...)
	for id := range tx.removed {
		tx.original = append(tx.original, id)
	}
	tx.deleted = true
	return nil
}

func cloneTask(t models.Task) models.Task {
	t.SubTaskIDs = append([]string{}, t.SubTaskIDs...)
	return t
}

func cloneUser(u models.User) models.User {
	if u.OTPExpiry != nil {
		expiry := *u.OTPExpiry
		u.OTPExpiry = &expiry
	}
	return u
}
