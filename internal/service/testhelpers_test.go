package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chore-tracker/internal/model"
	"chore-tracker/internal/repository"
)

// newTestDB opens a per-test in-memory SQLite database through the real GORM
// stack. A single connection keeps the shared-cache memory DB alive for the
// whole test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Task{},
		&model.CompletionRecord{},
		&model.Subtask{},
	))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, telegramID int64) *model.User {
	t.Helper()
	user := model.User{TelegramID: telegramID, FirstName: "Test"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// fixture bundles the services most tests need, all sharing one DB and a
// controllable clock.
type fixture struct {
	db          *gorm.DB
	user        *model.User
	tasks       *TaskService
	completions *CompletionService
	stats       *StatsService
	subtasks    *SubtaskService
	clock       *fakeClock
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time          { return c.current }
func (c *fakeClock) Set(t time.Time)         { c.current = t }
func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	user := newTestUser(t, db, 1001)

	taskRepo := repository.NewTaskRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	subtaskRepo := repository.NewSubtaskRepository(db)

	clock := &fakeClock{current: time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)}

	tasks := NewTaskService(taskRepo)
	tasks.now = clock.Now
	completions := NewCompletionService(taskRepo, completionRepo)
	completions.now = clock.Now
	subtasks := NewSubtaskService(taskRepo, subtaskRepo)
	subtasks.now = clock.Now

	return &fixture{
		db:          db,
		user:        user,
		tasks:       tasks,
		completions: completions,
		stats:       NewStatsService(taskRepo, completionRepo),
		subtasks:    subtasks,
		clock:       clock,
	}
}

func (f *fixture) createTask(t *testing.T, input TaskInput) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), f.user, input)
	require.NoError(t, err)
	return task
}
