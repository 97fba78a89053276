package model

import "time"

// CompletionRecord is one completion event. Rows are written once and never
// updated; they disappear only when the owning task is deleted. UserID
// duplicates the task owner so per-user statistics need no join.
type CompletionRecord struct {
	ID          uint      `gorm:"primaryKey"`
	TaskID      uint      `gorm:"index"`
	UserID      uint      `gorm:"index"`
	CompletedAt time.Time `gorm:"index"`
	Minutes     *int      // nil when the user did not report a duration
	OnTime      bool
	DaysFromDue int // 0 when on time, whole days late otherwise
	Note        string
	CreatedAt   time.Time
}
