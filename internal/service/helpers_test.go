package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskboard/internal/domain/models"
	"taskboard/internal/notify"
	storage "taskboard/repository/inmemory"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (d *recordingDispatcher) Dispatch(msg notify.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
}

func (d *recordingDispatcher) Messages() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.messages...)
}

func (d *recordingDispatcher) Last() notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.messages) == 0 {
		return notify.Message{}
	}
	return d.messages[len(d.messages)-1]
}

type fixture struct {
	store      *storage.Storage
	clock      *fakeClock
	dispatcher *recordingDispatcher
	tasks      *TaskService
	auth       *AuthService
}

// 2025-01-08 09:30 UTC
var fixtureNow = time.Date(2025, time.January, 8, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewStorage()
	clock := newFakeClock(fixtureNow)
	dispatcher := &recordingDispatcher{}
	return &fixture{
		store:      store,
		clock:      clock,
		dispatcher: dispatcher,
		tasks:      NewTaskService(store, store, clock),
		auth:       NewAuthService(store, dispatcher, clock),
	}
}

// seedUser stores a verified user with the given password.
func (f *fixture) seedUser(t *testing.T, id, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           id,
		Name:         id,
		Email:        email,
		PasswordHash: string(hash),
		IsVerified:   true,
		CreatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	return user
}

func (f *fixture) seedTask(t *testing.T, by, to, deadline string) *models.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), by, models.CreateTaskRequest{
		Title:    "Prepare release notes",
		AssignTo: to,
		Deadline: deadline,
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) storedUser(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.store.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func (f *fixture) storedTask(t *testing.T, id string) *models.Task {
	t.Helper()
	task, err := f.store.GetTask(context.Background(), id)
	require.NoError(t, err)
	return task
}
