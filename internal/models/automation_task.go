package models

import "time"

// Automation task kinds.
const (
	TaskOnce      = "once"
	TaskRecurring = "recurring"
	TaskCron      = "cron"
)

// AutomationTask is a scheduled operator command.
type AutomationTask struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	Command         string `gorm:"type:text;not null"`
	Kind            string `gorm:"size:16;not null;index"`
	IntervalMinutes int
	CronSpec        string `gorm:"size:128"`
	RunAt           *time.Time
	LastRunAt       *time.Time
	LastResult      string `gorm:"type:text"`
	RunCount        int    `gorm:"default:0"`
	Active          bool   `gorm:"default:true;index"`
	CreatedAt       time.Time
}
