package model

import "time"

// User is the Telegram identity tasks and completion records hang off.
// TelegramID is the stable key; the profile fields are refreshed on every
// contact.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
