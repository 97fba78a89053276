package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chore-tracker/internal/model"
)

// SubtaskRepository manages checklist items under tasks.
type SubtaskRepository struct {
	db *gorm.DB
}

func NewSubtaskRepository(db *gorm.DB) *SubtaskRepository {
	return &SubtaskRepository{db: db}
}

func (r *SubtaskRepository) Create(ctx context.Context, subtask *model.Subtask) error {
	if err := r.db.WithContext(ctx).Create(subtask).Error; err != nil {
		return fmt.Errorf("create subtask: %w", err)
	}
	return nil
}

func (r *SubtaskRepository) ListByTask(ctx context.Context, taskID uint) ([]model.Subtask, error) {
	var subtasks []model.Subtask
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("position ASC, id ASC").
		Find(&subtasks).Error; err != nil {
		return nil, err
	}
	return subtasks, nil
}

func (r *SubtaskRepository) FindByID(ctx context.Context, subtaskID uint) (*model.Subtask, error) {
	var subtask model.Subtask
	if err := r.db.WithContext(ctx).First(&subtask, subtaskID).Error; err != nil {
		return nil, err
	}
	return &subtask, nil
}

// Toggle flips the done flag, stamping or clearing the completion time.
func (r *SubtaskRepository) Toggle(ctx context.Context, subtask *model.Subtask, now time.Time) error {
	subtask.Done = !subtask.Done
	if subtask.Done {
		subtask.DoneAt = &now
	} else {
		subtask.DoneAt = nil
	}
	if err := r.db.WithContext(ctx).Save(subtask).Error; err != nil {
		return fmt.Errorf("toggle subtask: %w", err)
	}
	return nil
}

func (r *SubtaskRepository) Rename(ctx context.Context, subtaskID uint, title string) error {
	res := r.db.WithContext(ctx).Model(&model.Subtask{}).Where("id = ?", subtaskID).Update("title", title)
	if res.Error != nil {
		return fmt.Errorf("rename subtask: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PositionUpdate pairs a subtask with its new position for reordering.
type PositionUpdate struct {
	SubtaskID uint
	Position  int
}

// Reorder applies all position changes or none of them.
func (r *SubtaskRepository) Reorder(ctx context.Context, updates []PositionUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(&model.Subtask{}).Where("id = ?", u.SubtaskID).Update("position", u.Position).Error; err != nil {
				return fmt.Errorf("reorder subtask %d: %w", u.SubtaskID, err)
			}
		}
		return nil
	})
}

func (r *SubtaskRepository) Delete(ctx context.Context, subtaskID uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Subtask{}, subtaskID).Error; err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	return nil
}

// Counts returns how many subtasks a task has and how many are done.
func (r *SubtaskRepository) Counts(ctx context.Context, taskID uint) (total, done int, err error) {
	var row struct {
		Total int
		Done  int
	}
	err = r.db.WithContext(ctx).
		Model(&model.Subtask{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN done THEN 1 ELSE 0 END), 0) AS done").
		Where("task_id = ?", taskID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("subtask counts: %w", err)
	}
	return row.Total, row.Done, nil
}
