package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chore-tracker/internal/repository"
)

func TestSubtasks_ChecklistLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, TaskInput{Title: "spring cleaning", Cadence: "yearly", WindowDays: 7})

	first, err := f.subtasks.Add(ctx, f.user, task.ID, "windows", 0)
	require.NoError(t, err)
	second, err := f.subtasks.Add(ctx, f.user, task.ID, "carpets", 1)
	require.NoError(t, err)

	_, err = f.subtasks.Add(ctx, f.user, task.ID, "   ", 2)
	assert.ErrorIs(t, err, ErrInvalid)

	toggled, err := f.subtasks.Toggle(ctx, f.user, first.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Done)
	require.NotNil(t, toggled.DoneAt)

	done, total, err := f.subtasks.Progress(ctx, f.user, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)

	// Toggling back clears the completion stamp.
	toggled, err = f.subtasks.Toggle(ctx, f.user, first.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Done)
	assert.Nil(t, toggled.DoneAt)

	require.NoError(t, f.subtasks.Rename(ctx, f.user, second.ID, "rugs"))

	// Reorder swaps the two items.
	require.NoError(t, f.subtasks.Reorder(ctx, f.user, task.ID, []repository.PositionUpdate{
		{SubtaskID: first.ID, Position: 1},
		{SubtaskID: second.ID, Position: 0},
	}))
	items, err := f.subtasks.List(ctx, f.user, task.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "rugs", items[0].Title)
	assert.Equal(t, "windows", items[1].Title)

	require.NoError(t, f.subtasks.Remove(ctx, f.user, first.ID))
	items, err = f.subtasks.List(ctx, f.user, task.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSubtasks_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, TaskInput{Title: "mine", Cadence: "daily"})
	item, err := f.subtasks.Add(ctx, f.user, task.ID, "step", 0)
	require.NoError(t, err)

	stranger := newTestUser(t, f.db, 5005)
	_, err = f.subtasks.Add(ctx, stranger, task.ID, "intrusion", 0)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.subtasks.Toggle(ctx, stranger, item.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.subtasks.List(ctx, stranger, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	err = f.subtasks.Remove(ctx, stranger, item.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
