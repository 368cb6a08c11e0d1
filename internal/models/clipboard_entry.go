package models

import "time"

// ClipboardEntry is one remembered clipboard text, newest first by CreatedAt.
type ClipboardEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Content   string    `gorm:"type:text;not null"`
	Hash      string    `gorm:"size:64;index"`
	CreatedAt time.Time `gorm:"index"`
}
