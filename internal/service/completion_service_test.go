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

func intPtr(v int) *int { return &v }

func TestComplete_OnTimeAdvancesAnchorFromCompletion(t *testing.T) {
	f := newFixture(t)
	t0 := f.clock.Now()

	task := f.createTask(t, TaskInput{Title: "water plants", Cadence: "weekly", WindowDays: 2})

	// Complete one day into the two-day window.
	f.clock.Advance(24 * time.Hour)
	rec, updated, err := f.completions.Complete(context.Background(), f.user, task.ID, intPtr(30), "")
	require.NoError(t, err)

	assert.True(t, rec.OnTime)
	assert.Equal(t, 0, rec.DaysFromDue)
	require.NotNil(t, rec.Minutes)
	assert.Equal(t, 30, *rec.Minutes)

	// The next occurrence starts a week after the completion, not after the
	// old deadline.
	assert.Equal(t, t0.AddDate(0, 0, 8), updated.Anchor)
	assert.Equal(t, 1, updated.TimesCompleted)
	assert.InDelta(t, 30.0, updated.AverageMinutes, 1e-9)
	require.NotNil(t, updated.LastCompletedAt)
	assert.Equal(t, f.clock.Now(), *updated.LastCompletedAt)
}

func TestComplete_ExactlyAtDeadlineIsOnTime(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "take out trash", Cadence: "daily", WindowDays: 1})

	f.clock.Advance(24 * time.Hour) // now == deadline
	rec, _, err := f.completions.Complete(context.Background(), f.user, task.ID, nil, "")
	require.NoError(t, err)

	assert.True(t, rec.OnTime)
	assert.Equal(t, 0, rec.DaysFromDue)
}

func TestComplete_OneSecondLate(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "take out trash", Cadence: "daily", WindowDays: 1})

	f.clock.Advance(24*time.Hour + time.Second)
	rec, _, err := f.completions.Complete(context.Background(), f.user, task.ID, nil, "")
	require.NoError(t, err)

	assert.False(t, rec.OnTime)
	assert.Equal(t, 0, rec.DaysFromDue) // under a full day late floors to 0
}

func TestComplete_DaysFromDueFloorsWholeDays(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "pay rent", Cadence: "monthly", WindowDays: 3})

	f.clock.Advance(3*24*time.Hour + 50*time.Hour) // two full days plus two hours past the deadline
	rec, _, err := f.completions.Complete(context.Background(), f.user, task.ID, nil, "forgot")
	require.NoError(t, err)

	assert.False(t, rec.OnTime)
	assert.Equal(t, 2, rec.DaysFromDue)
	assert.Equal(t, "forgot", rec.Note)
}

func TestComplete_OmittedDurationLeavesAveragesAlone(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "vacuum", Cadence: "weekly", WindowDays: 2})

	_, updated, err := f.completions.Complete(context.Background(), f.user, task.ID, intPtr(40), "")
	require.NoError(t, err)
	assert.InDelta(t, 40.0, updated.AverageMinutes, 1e-9)

	// Second completion without a duration: count moves, duration totals don't.
	_, updated, err = f.completions.Complete(context.Background(), f.user, task.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TimesCompleted)
	assert.Equal(t, 40, updated.TotalMinutes)
	assert.InDelta(t, 40.0, updated.AverageMinutes, 1e-9)
}

func TestComplete_AverageOverManyCompletions(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "mow lawn", Cadence: "daily", WindowDays: 1})

	durations := []int{10, 20, 30, 60}
	sum := 0
	var updated *model.Task
	var err error
	for _, d := range durations {
		sum += d
		_, updated, err = f.completions.Complete(context.Background(), f.user, task.ID, intPtr(d), "")
		require.NoError(t, err)
	}

	assert.Equal(t, len(durations), updated.TimesCompleted)
	assert.Equal(t, sum, updated.TotalMinutes)
	assert.InDelta(t, float64(sum)/float64(len(durations)), updated.AverageMinutes, 1e-9)
}

func TestComplete_RecordAndAggregatesCommitTogether(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "laundry", Cadence: "weekly", WindowDays: 2})

	_, _, err := f.completions.Complete(context.Background(), f.user, task.ID, intPtr(15), "")
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&model.CompletionRecord{}).Where("task_id = ?", task.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var stored model.Task
	require.NoError(t, f.db.First(&stored, task.ID).Error)
	assert.Equal(t, 1, stored.TimesCompleted)
	assert.Equal(t, 15, stored.TotalMinutes)
}

func TestComplete_ErrorsBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "dishes", Cadence: "daily", WindowDays: 1})

	_, _, err := f.completions.Complete(context.Background(), f.user, 9999, nil, "")
	assert.ErrorIs(t, err, ErrNotFound)

	stranger := newTestUser(t, f.db, 2002)
	_, _, err = f.completions.Complete(context.Background(), stranger, task.ID, nil, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.completions.Complete(context.Background(), f.user, task.ID, intPtr(-5), "")
	assert.ErrorIs(t, err, ErrInvalid)

	// None of the failures may have left a record behind.
	var count int64
	require.NoError(t, f.db.Model(&model.CompletionRecord{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestComplete_MatchesUrgencyScenarioEndToEnd(t *testing.T) {
	f := newFixture(t)
	t0 := f.clock.Now()
	task := f.createTask(t, TaskInput{Title: "weekly report", Cadence: "weekly", WindowDays: 2})

	f.clock.Set(t0.AddDate(0, 0, 1))
	c := schedule.Classify(task.Anchor, task.WindowDays, f.clock.Now())
	assert.Equal(t, schedule.BandYellow, c.Band) // exactly 50% left

	rec, updated, err := f.completions.Complete(context.Background(), f.user, task.ID, intPtr(30), "")
	require.NoError(t, err)

	assert.True(t, rec.OnTime)
	assert.Equal(t, 0, rec.DaysFromDue)
	assert.Equal(t, t0.AddDate(0, 0, 8), updated.Anchor)
	assert.Equal(t, 1, updated.TimesCompleted)
	assert.InDelta(t, 30.0, updated.AverageMinutes, 1e-9)
}
