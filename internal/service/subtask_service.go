package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"chore-tracker/internal/model"
	"chore-tracker/internal/repository"
)

// SubtaskService provides checklist CRUD under a task. Ownership checks go
// through the parent task; subtasks themselves carry no owner.
type SubtaskService struct {
	tasks    *repository.TaskRepository
	subtasks *repository.SubtaskRepository
	now      func() time.Time
}

func NewSubtaskService(tasks *repository.TaskRepository, subtasks *repository.SubtaskRepository) *SubtaskService {
	return &SubtaskService{tasks: tasks, subtasks: subtasks, now: time.Now}
}

func (s *SubtaskService) Add(ctx context.Context, user *model.User, taskID uint, title string, position int) (*model.Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: subtask title is required", ErrInvalid)
	}
	if _, err := s.ownedTask(ctx, user, taskID); err != nil {
		return nil, err
	}

	subtask := model.Subtask{TaskID: taskID, Title: title, Position: position}
	if err := s.subtasks.Create(ctx, &subtask); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &subtask, nil
}

func (s *SubtaskService) List(ctx context.Context, user *model.User, taskID uint) ([]model.Subtask, error) {
	if _, err := s.ownedTask(ctx, user, taskID); err != nil {
		return nil, err
	}
	subtasks, err := s.subtasks.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return subtasks, nil
}

func (s *SubtaskService) Toggle(ctx context.Context, user *model.User, subtaskID uint) (*model.Subtask, error) {
	subtask, err := s.ownedSubtask(ctx, user, subtaskID)
	if err != nil {
		return nil, err
	}
	if err := s.subtasks.Toggle(ctx, subtask, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return subtask, nil
}

func (s *SubtaskService) Rename(ctx context.Context, user *model.User, subtaskID uint, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: subtask title is required", ErrInvalid)
	}
	if _, err := s.ownedSubtask(ctx, user, subtaskID); err != nil {
		return err
	}
	if err := s.subtasks.Rename(ctx, subtaskID, title); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Reorder applies new positions to a task's subtasks atomically.
func (s *SubtaskService) Reorder(ctx context.Context, user *model.User, taskID uint, updates []repository.PositionUpdate) error {
	if _, err := s.ownedTask(ctx, user, taskID); err != nil {
		return err
	}
	if err := s.subtasks.Reorder(ctx, updates); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (s *SubtaskService) Remove(ctx context.Context, user *model.User, subtaskID uint) error {
	if _, err := s.ownedSubtask(ctx, user, subtaskID); err != nil {
		return err
	}
	if err := s.subtasks.Delete(ctx, subtaskID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Progress reports done vs total checklist items for a task.
func (s *SubtaskService) Progress(ctx context.Context, user *model.User, taskID uint) (done, total int, err error) {
	if _, err := s.ownedTask(ctx, user, taskID); err != nil {
		return 0, 0, err
	}
	total, done, err = s.subtasks.Counts(ctx, taskID)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return done, total, nil
}

func (s *SubtaskService) ownedTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
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

func (s *SubtaskService) ownedSubtask(ctx context.Context, user *model.User, subtaskID uint) (*model.Subtask, error) {
	subtask, err := s.subtasks.FindByID(ctx, subtaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: subtask %d", ErrNotFound, subtaskID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if _, err := s.ownedTask(ctx, user, subtask.TaskID); err != nil {
		return nil, err
	}
	return subtask, nil
}
