package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chore-tracker/internal/model"
)

// TaskRepository handles reads and writes of tasks. Aggregate fields are
// written only through CompletionRepository.RecordCompletion; everything here
// touches the descriptive and scheduling columns.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID loads a task without scoping by owner so callers can tell a
// missing task from one that belongs to somebody else.
func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByUser returns a user's tasks ordered by ascending anchor, the contract
// every listing surface relies on. Inactive tasks are excluded unless asked
// for.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uint, includeInactive bool) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var tasks []model.Task
	if err := q.Order("anchor ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListDue returns active tasks whose current occurrence has started.
func (r *TaskRepository) ListDue(ctx context.Context, userID uint, now time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND anchor <= ?", userID, true, now).
		Order("anchor ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateFields applies a pre-validated set of column updates.
func (r *TaskRepository) UpdateFields(ctx context.Context, taskID uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a task together with its completion history and subtasks in
// one transaction, so no orphaned rows survive a partial failure.
func (r *TaskRepository) Delete(ctx context.Context, taskID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&model.CompletionRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&model.Subtask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, taskID).Error
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
