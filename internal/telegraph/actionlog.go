package telegraph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zulandar/pcremote/internal/logger"
	"github.com/zulandar/pcremote/internal/models"
)

// ActionRecorder writes one ActionLog row per routed action. A nil
// *ActionRecorder records nothing.
type ActionRecorder struct {
	db *gorm.DB
}

// NewActionRecorder creates an ActionRecorder backed by db.
func NewActionRecorder(db *gorm.DB) *ActionRecorder {
	if db == nil {
		return nil
	}
	return &ActionRecorder{db: db}
}

// Record stores the action. Failures are logged and never reach the
// operator.
func (a *ActionRecorder) Record(ctx context.Context, msg InboundMessage, action string, actionErr error, elapsed time.Duration) {
	if a == nil {
		return
	}
	row := models.ActionLog{
		RequestID:  uuid.NewString(),
		Principal:  msg.UserID,
		Platform:   msg.Platform,
		Action:     truncate(action, 128),
		Outcome:    outcomeOf(actionErr),
		DurationMs: elapsed.Milliseconds(),
	}
	if actionErr != nil {
		row.Error = actionErr.Error()
	}
	if err := a.db.WithContext(context.WithoutCancel(ctx)).Create(&row).Error; err != nil {
		logger.Warn("record action", "action", action, "err", err)
	}
}

// Recent returns the newest rows, newest first.
func (a *ActionRecorder) Recent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	if a == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []models.ActionLog
	err := a.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
