package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chore-tracker/internal/model"
	"chore-tracker/internal/repository"
)

const defaultHistoryLimit = 50

// TaskStats summarizes the committed completion history of one task.
type TaskStats struct {
	TaskID           uint
	Title            string
	TimesCompleted   int
	TotalCompletions int
	OnTime           int
	Late             int
	OnTimePercentage float64
	AverageMinutes   float64
	LastCompletedAt  *time.Time
	NextDue          time.Time
}

// UserStats sums completions across all of a user's tasks. The percentage is
// left to the presentation layer.
type UserStats struct {
	TotalCompletions  int
	OnTimeCompletions int
}

// StatsService derives summaries from stored completion history. Read-only:
// it never touches task or completion state.
type StatsService struct {
	tasks       *repository.TaskRepository
	completions *repository.CompletionRepository
}

func NewStatsService(tasks *repository.TaskRepository, completions *repository.CompletionRepository) *StatsService {
	return &StatsService{tasks: tasks, completions: completions}
}

func (s *StatsService) TaskStatistics(ctx context.Context, user *model.User, taskID uint) (*TaskStats, error) {
	task, err := s.ownedTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}

	totals, err := s.completions.TaskTotals(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	stats := &TaskStats{
		TaskID:           task.ID,
		Title:            task.Title,
		TimesCompleted:   task.TimesCompleted,
		TotalCompletions: totals.Total,
		OnTime:           totals.OnTime,
		Late:             totals.Total - totals.OnTime,
		AverageMinutes:   totals.AverageMinutes,
		LastCompletedAt:  task.LastCompletedAt,
		NextDue:          task.Anchor,
	}
	if totals.Total > 0 {
		stats.OnTimePercentage = float64(totals.OnTime) / float64(totals.Total) * 100
	}
	return stats, nil
}

func (s *StatsService) UserStatistics(ctx context.Context, user *model.User) (UserStats, error) {
	total, onTime, err := s.completions.UserTotals(ctx, user.ID)
	if err != nil {
		return UserStats{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return UserStats{TotalCompletions: total, OnTimeCompletions: onTime}, nil
}

// History returns the most recent completion records for a task.
func (s *StatsService) History(ctx context.Context, user *model.User, taskID uint, limit int) ([]model.CompletionRecord, error) {
	if _, err := s.ownedTask(ctx, user, taskID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	records, err := s.completions.ListByTask(ctx, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return records, nil
}

func (s *StatsService) ownedTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if task.UserID != user.ID {
		return nil, fmt.Errorf("%w: task %d belongs to another user", ErrForbidden, taskID)
	}
	return task, nil
}
