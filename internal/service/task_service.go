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
	"chore-tracker/internal/schedule"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title      string
	Details    string
	Category   string
	Cadence    string
	WindowDays int        // 0 means the default single-day window
	Anchor     *time.Time // nil anchors the task at creation time
}

// TaskUpdate lists the fields an edit may change; nil fields stay untouched.
type TaskUpdate struct {
	Title      *string
	Details    *string
	Category   *string
	Cadence    *string
	WindowDays *int
	IsActive   *bool
}

// TaskStatus is a task together with its derived due-state, the shape the
// presentation layer renders.
type TaskStatus struct {
	Task           model.Task
	Deadline       time.Time
	Band           schedule.Band
	HoursRemaining float64
}

// TaskService wraps task lifecycle logic: validation, listing with urgency,
// edits, deactivation and deletion.
type TaskService struct {
	tasks *repository.TaskRepository
	now   func() time.Time
}

func NewTaskService(tasks *repository.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks, now: time.Now}
}

// Create validates the input and stores a new task. The task is immediately
// actionable: its anchor defaults to the current instant.
func (s *TaskService) Create(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	cadence, err := schedule.ParseCadence(input.Cadence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	window := input.WindowDays
	if window == 0 {
		window = 1
	}
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be at least one day", ErrInvalid)
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = model.DefaultCategory
	}

	anchor := s.now()
	if input.Anchor != nil {
		anchor = *input.Anchor
	}

	task := model.Task{
		UserID:     user.ID,
		Title:      title,
		Details:    strings.TrimSpace(input.Details),
		Category:   category,
		Cadence:    cadence,
		WindowDays: window,
		Anchor:     anchor,
		IsActive:   true,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &task, nil
}

// Get loads a task and enforces ownership. A missing task and somebody
// else's task fail differently so the surface can answer 404 vs 403.
func (s *TaskService) Get(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
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

// List returns the user's tasks in ascending anchor order.
func (s *TaskService) List(ctx context.Context, user *model.User, includeInactive bool) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, user.ID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return tasks, nil
}

// ListWithUrgency classifies every active task against a single clock
// reading. Inactive tasks never appear here.
func (s *TaskService) ListWithUrgency(ctx context.Context, user *model.User) ([]TaskStatus, error) {
	tasks, err := s.tasks.ListByUser(ctx, user.ID, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	now := s.now()
	statuses := make([]TaskStatus, 0, len(tasks))
	for _, task := range tasks {
		c := schedule.Classify(task.Anchor, task.WindowDays, now)
		statuses = append(statuses, TaskStatus{
			Task:           task,
			Deadline:       c.Deadline,
			Band:           c.Band,
			HoursRemaining: c.HoursRemaining,
		})
	}
	return statuses, nil
}

// ListDue returns active tasks whose occurrence has already started.
func (s *TaskService) ListDue(ctx context.Context, user *model.User) ([]model.Task, error) {
	tasks, err := s.tasks.ListDue(ctx, user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return tasks, nil
}

// Update edits descriptive and scheduling fields after re-validating them.
func (s *TaskService) Update(ctx context.Context, user *model.User, taskID uint, upd TaskUpdate) (*model.Task, error) {
	if _, err := s.Get(ctx, user, taskID); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalid)
		}
		fields["title"] = title
	}
	if upd.Details != nil {
		fields["details"] = strings.TrimSpace(*upd.Details)
	}
	if upd.Category != nil {
		category := strings.TrimSpace(*upd.Category)
		if category == "" {
			category = model.DefaultCategory
		}
		fields["category"] = category
	}
	if upd.Cadence != nil {
		cadence, err := schedule.ParseCadence(*upd.Cadence)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		fields["cadence"] = cadence
	}
	if upd.WindowDays != nil {
		if *upd.WindowDays < 1 {
			return nil, fmt.Errorf("%w: window must be at least one day", ErrInvalid)
		}
		fields["window_days"] = *upd.WindowDays
	}
	if upd.IsActive != nil {
		fields["is_active"] = *upd.IsActive
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	if err := s.tasks.UpdateFields(ctx, taskID, fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return s.Get(ctx, user, taskID)
}

// Deactivate hides the task from listings and urgency queries while keeping
// its completion history.
func (s *TaskService) Deactivate(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	inactive := false
	return s.Update(ctx, user, taskID, TaskUpdate{IsActive: &inactive})
}

// Delete removes the task and cascades its completion records and subtasks.
func (s *TaskService) Delete(ctx context.Context, user *model.User, taskID uint) error {
	if _, err := s.Get(ctx, user, taskID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
