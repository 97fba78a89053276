package model

import (
	"time"

	"chore-tracker/internal/schedule"
)

// DefaultCategory is applied when a task is created without a category tag.
const DefaultCategory = "general"

// Task is a recurring obligation. Anchor marks when the current occurrence
// became available; Anchor plus WindowDays is the completion deadline. The
// aggregate fields (TimesCompleted, TotalMinutes, AverageMinutes,
// LastCompletedAt) change only through the completion path, in the same
// transaction that inserts the CompletionRecord.
type Task struct {
	ID              uint `gorm:"primaryKey"`
	UserID          uint `gorm:"index"`
	Title           string
	Details         string
	Category        string           `gorm:"default:general"`
	Cadence         schedule.Cadence `gorm:"type:text"`
	WindowDays      int              `gorm:"default:1"`
	Anchor          time.Time        `gorm:"index"`
	IsActive        bool             `gorm:"default:true"`
	TimesCompleted  int              `gorm:"default:0"`
	TotalMinutes    int              `gorm:"default:0"`
	AverageMinutes  float64          `gorm:"default:0"`
	LastCompletedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Completions     []CompletionRecord `gorm:"foreignKey:TaskID"`
	Subtasks        []Subtask          `gorm:"foreignKey:TaskID"`
}
