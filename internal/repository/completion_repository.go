package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chore-tracker/internal/model"
)

// ErrStaleTask means another completion committed between reading the task
// and writing its aggregates. Nothing was persisted; the caller may re-read
// and retry.
var ErrStaleTask = errors.New("task aggregates changed concurrently")

// CompletionRepository owns the completion history and the only write path
// for task aggregates.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// AggregateUpdate carries the task columns derived from one completion.
type AggregateUpdate struct {
	TimesCompleted  int
	TotalMinutes    int
	AverageMinutes  float64
	LastCompletedAt time.Time
	Anchor          time.Time
}

// RecordCompletion inserts the record and applies the aggregate update as a
// single transaction. The update is guarded by the times_completed value the
// caller read, so two concurrent completions of the same task cannot both
// commit against the same snapshot: the loser rolls back with ErrStaleTask.
func (r *CompletionRepository) RecordCompletion(ctx context.Context, rec *model.CompletionRecord, prevTimesCompleted int, agg AggregateUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("insert completion: %w", err)
		}

		res := tx.Model(&model.Task{}).
			Where("id = ? AND times_completed = ?", rec.TaskID, prevTimesCompleted).
			Updates(map[string]interface{}{
				"times_completed":   agg.TimesCompleted,
				"total_minutes":     agg.TotalMinutes,
				"average_minutes":   agg.AverageMinutes,
				"last_completed_at": agg.LastCompletedAt,
				"anchor":            agg.Anchor,
			})
		if res.Error != nil {
			return fmt.Errorf("update aggregates: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleTask
		}
		return nil
	})
}

// ListByTask returns the most recent completions first.
func (r *CompletionRepository) ListByTask(ctx context.Context, taskID uint, limit int) ([]model.CompletionRecord, error) {
	var records []model.CompletionRecord
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// TaskTotals aggregates the committed completion rows of one task.
type TaskTotals struct {
	Total          int
	OnTime         int
	AverageMinutes float64
}

func (r *CompletionRepository) TaskTotals(ctx context.Context, taskID uint) (TaskTotals, error) {
	var row struct {
		Total      int
		OnTime     int
		AvgMinutes sql.NullFloat64
	}
	err := r.db.WithContext(ctx).
		Model(&model.CompletionRecord{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN on_time THEN 1 ELSE 0 END), 0) AS on_time, AVG(minutes) AS avg_minutes").
		Where("task_id = ?", taskID).
		Scan(&row).Error
	if err != nil {
		return TaskTotals{}, fmt.Errorf("task totals: %w", err)
	}

	totals := TaskTotals{Total: row.Total, OnTime: row.OnTime}
	if row.AvgMinutes.Valid {
		totals.AverageMinutes = row.AvgMinutes.Float64
	}
	return totals, nil
}

// UserTotals sums completion counts across all of a user's tasks. The user id
// is denormalized onto completion rows, so no join is needed.
func (r *CompletionRepository) UserTotals(ctx context.Context, userID uint) (total, onTime int, err error) {
	var row struct {
		Total  int
		OnTime int
	}
	err = r.db.WithContext(ctx).
		Model(&model.CompletionRecord{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN on_time THEN 1 ELSE 0 END), 0) AS on_time").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("user totals: %w", err)
	}
	return row.Total, row.OnTime, nil
}
