package service

import (
	"context"
	"testing"
	"time"

	"taskboard/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "alice", "alice@x.com", "secret1")
	f.seedUser(t, "bob", "bob@x.com", "secret1")

	// fixtureNow is 2025-01-08.
	yesterday := f.seedTask(t, "alice", "bob", "2025-01-07")
	f.seedTask(t, "alice", "bob", "2025-01-08")
	done := f.seedTask(t, "alice", "bob", "2025-01-01")
	f.seedTask(t, "bob", "alice", "2025-01-02")
	_, err := f.tasks.ToggleTaskStatus(ctx, "bob", done.ID, "")
	require.NoError(t, err)

	stats, err := f.tasks.Dashboard(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.ToMeStats{Total: 3, Pending: 2, Completed: 1, Overdue: 1}, stats.TasksToMe)
	assert.Equal(t, models.ByMeStats{Total: 1, Pending: 1, Completed: 0}, stats.TasksByMe)

	_, err = f.tasks.ToggleTaskStatus(ctx, "bob", yesterday.ID, "")
	require.NoError(t, err)
	stats, err = f.tasks.Dashboard(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TasksToMe.Overdue, "completed tasks are never overdue")

	// A task due today becomes overdue only once the date rolls over.
	f.clock.Advance(24 * time.Hour)
	stats, err = f.tasks.Dashboard(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TasksToMe.Overdue)

	stats, err = f.tasks.Dashboard(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TasksByMe.Total)
	assert.Equal(t, 1, stats.TasksToMe.Total)
	assert.Equal(t, 1, stats.TasksToMe.Overdue)
}
