package model

import "time"

// Subtask is a checklist item under a task. Plain CRUD, no recurrence or
// aggregate logic.
type Subtask struct {
	ID        uint   `gorm:"primaryKey"`
	TaskID    uint   `gorm:"index"`
	Title     string
	Position  int  `gorm:"default:0"`
	Done      bool `gorm:"default:false"`
	DoneAt    *time.Time
	CreatedAt time.Time
}
