package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"chore-tracker/internal/model"
	"chore-tracker/internal/repository"
	"chore-tracker/internal/schedule"
)

// CompletionService records completion events. One call derives on-time
// status against the stored anchor, appends an immutable history row, folds
// the event into the task aggregates and advances the anchor to the next
// occurrence. All of that commits atomically or not at all.
type CompletionService struct {
	tasks       *repository.TaskRepository
	completions *repository.CompletionRepository
	now         func() time.Time
}

func NewCompletionService(tasks *repository.TaskRepository, completions *repository.CompletionRepository) *CompletionService {
	return &CompletionService{tasks: tasks, completions: completions, now: time.Now}
}

// Complete records one completion of the task. minutes may be nil when the
// user did not time the work; the duration aggregates then stay as they were
// while the completion count still advances. The new occurrence starts at the
// completion instant, not at the old deadline: finishing resets the clock
// from the moment you finish.
func (s *CompletionService) Complete(ctx context.Context, user *model.User, taskID uint, minutes *int, note string) (*model.CompletionRecord, *model.Task, error) {
	if minutes != nil && *minutes < 0 {
		return nil, nil, fmt.Errorf("%w: duration must not be negative", ErrInvalid)
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if task.UserID != user.ID {
		return nil, nil, fmt.Errorf("%w: task %d belongs to another user", ErrForbidden, taskID)
	}

	now := s.now()
	deadline := schedule.Deadline(task.Anchor, task.WindowDays)
	onTime := !now.After(deadline)

	daysFromDue := int(math.Floor(now.Sub(deadline).Hours() / 24))
	if daysFromDue < 0 {
		daysFromDue = 0
	}

	record := &model.CompletionRecord{
		TaskID:      task.ID,
		UserID:      task.UserID,
		CompletedAt: now,
		Minutes:     minutes,
		OnTime:      onTime,
		DaysFromDue: daysFromDue,
		Note:        note,
	}

	agg := repository.AggregateUpdate{
		TimesCompleted:  task.TimesCompleted + 1,
		TotalMinutes:    task.TotalMinutes,
		AverageMinutes:  task.AverageMinutes,
		LastCompletedAt: now,
		Anchor:          schedule.NextAnchor(task.Cadence, now),
	}
	if minutes != nil {
		agg.TotalMinutes += *minutes
		agg.AverageMinutes = float64(agg.TotalMinutes) / float64(agg.TimesCompleted)
	}

	if err := s.completions.RecordCompletion(ctx, record, task.TimesCompleted, agg); err != nil {
		if errors.Is(err, repository.ErrStaleTask) {
			return nil, nil, fmt.Errorf("%w: task was completed concurrently", ErrStorage)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	task.TimesCompleted = agg.TimesCompleted
	task.TotalMinutes = agg.TotalMinutes
	task.AverageMinutes = agg.AverageMinutes
	task.LastCompletedAt = &agg.LastCompletedAt
	task.Anchor = agg.Anchor

	return record, task, nil
}
