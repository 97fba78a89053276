package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chore-tracker/internal/model"
	"chore-tracker/internal/schedule"
)

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, f.user, TaskInput{Title: "  ", Cadence: "daily"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.tasks.Create(ctx, f.user, TaskInput{Title: "x", Cadence: "hourly"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.tasks.Create(ctx, f.user, TaskInput{Title: "x", Cadence: "daily", WindowDays: -1})
	assert.ErrorIs(t, err, ErrInvalid)

	// Nothing was written by the rejected inputs.
	var count int64
	require.NoError(t, f.db.Model(&model.Task{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreate_Defaults(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t, TaskInput{Title: "  water plants ", Cadence: "weekly"})

	assert.Equal(t, "water plants", task.Title)
	assert.Equal(t, model.DefaultCategory, task.Category)
	assert.Equal(t, 1, task.WindowDays)
	assert.Equal(t, f.clock.Now(), task.Anchor) // immediately actionable
	assert.True(t, task.IsActive)
	assert.Equal(t, 0, task.TimesCompleted)
}

func TestCreate_ExplicitAnchor(t *testing.T) {
	f := newFixture(t)

	anchor := time.Date(2025, time.July, 1, 8, 0, 0, 0, time.UTC)
	task := f.createTask(t, TaskInput{Title: "quarterly filing", Cadence: "monthly", WindowDays: 5, Anchor: &anchor})

	assert.Equal(t, anchor, task.Anchor)
	assert.Equal(t, 5, task.WindowDays)
}

func TestGet_DistinguishesMissingFromForeign(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "a", Cadence: "daily"})

	_, err := f.tasks.Get(context.Background(), f.user, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	stranger := newTestUser(t, f.db, 2002)
	_, err = f.tasks.Get(context.Background(), stranger, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListWithUrgency_AnchorOrderAndActiveOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	later := now.Add(48 * time.Hour)
	earlier := now.Add(-30 * time.Hour)

	f.createTask(t, TaskInput{Title: "third", Cadence: "daily", WindowDays: 4, Anchor: &later})
	first := f.createTask(t, TaskInput{Title: "first", Cadence: "daily", WindowDays: 1, Anchor: &earlier})
	second := f.createTask(t, TaskInput{Title: "second", Cadence: "daily", WindowDays: 4})

	hidden := f.createTask(t, TaskInput{Title: "hidden", Cadence: "daily"})
	_, err := f.tasks.Deactivate(ctx, f.user, hidden.ID)
	require.NoError(t, err)

	statuses, err := f.tasks.ListWithUrgency(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	// Ordered by ascending anchor, independent of band.
	assert.Equal(t, first.ID, statuses[0].Task.ID)
	assert.Equal(t, second.ID, statuses[1].Task.ID)
	assert.Equal(t, "third", statuses[2].Task.Title)

	// The stale one is past its one-day window; the fresh ones are green.
	assert.Equal(t, schedule.BandOverdue, statuses[0].Band)
	assert.Negative(t, statuses[0].HoursRemaining)
	assert.Equal(t, schedule.BandGreen, statuses[1].Band)
	assert.Equal(t, schedule.BandGreen, statuses[2].Band)
	assert.Equal(t, second.Anchor.Add(4*24*time.Hour), statuses[1].Deadline)
}

func TestListDue_SkipsFutureAnchors(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	future := now.Add(time.Hour)
	f.createTask(t, TaskInput{Title: "not yet", Cadence: "daily", Anchor: &future})
	due := f.createTask(t, TaskInput{Title: "due now", Cadence: "daily"})

	tasks, err := f.tasks.ListDue(context.Background(), f.user)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, due.ID, tasks[0].ID)
}

func TestUpdate_ValidatesAndApplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, TaskInput{Title: "old", Cadence: "daily"})

	badCadence := "sometimes"
	_, err := f.tasks.Update(ctx, f.user, task.ID, TaskUpdate{Cadence: &badCadence})
	assert.ErrorIs(t, err, ErrInvalid)

	zero := 0
	_, err = f.tasks.Update(ctx, f.user, task.ID, TaskUpdate{WindowDays: &zero})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.tasks.Update(ctx, f.user, task.ID, TaskUpdate{})
	assert.ErrorIs(t, err, ErrInvalid)

	title := "new title"
	cadence := "monthly"
	window := 3
	updated, err := f.tasks.Update(ctx, f.user, task.ID, TaskUpdate{Title: &title, Cadence: &cadence, WindowDays: &window})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, schedule.Monthly, updated.Cadence)
	assert.Equal(t, 3, updated.WindowDays)
}

func TestDeactivate_KeepsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, TaskInput{Title: "gym", Cadence: "weekly", WindowDays: 2})

	_, _, err := f.completions.Complete(ctx, f.user, task.ID, intPtr(45), "")
	require.NoError(t, err)

	updated, err := f.tasks.Deactivate(ctx, f.user, task.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	var count int64
	require.NoError(t, f.db.Model(&model.CompletionRecord{}).Where("task_id = ?", task.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDelete_CascadesCompletionsAndSubtasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, TaskInput{Title: "move out", Cadence: "yearly", WindowDays: 7})

	_, _, err := f.completions.Complete(ctx, f.user, task.ID, nil, "")
	require.NoError(t, err)
	_, err = f.subtasks.Add(ctx, f.user, task.ID, "pack boxes", 0)
	require.NoError(t, err)

	require.NoError(t, f.tasks.Delete(ctx, f.user, task.ID))

	var completions, subtasks int64
	require.NoError(t, f.db.Model(&model.CompletionRecord{}).Where("task_id = ?", task.ID).Count(&completions).Error)
	require.NoError(t, f.db.Model(&model.Subtask{}).Where("task_id = ?", task.ID).Count(&subtasks).Error)
	assert.EqualValues(t, 0, completions)
	assert.EqualValues(t, 0, subtasks)

	_, err = f.tasks.Get(ctx, f.user, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
