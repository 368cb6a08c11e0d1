package models

import "time"

// ActionLog records one routed action for the status API.
type ActionLog struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RequestID  string `gorm:"size:36;index"`
	Principal  string `gorm:"size:64;index"`
	Platform   string `gorm:"size:16"`
	Action     string `gorm:"size:128;index"`
	Outcome    string `gorm:"size:16"`
	Error      string `gorm:"type:text"`
	DurationMs int64
	CreatedAt  time.Time `gorm:"index"`
}
