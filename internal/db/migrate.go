package db

import (
	"fmt"

	"github.com/zulandar/pcremote/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.ClipboardEntry{},
		&models.AutomationTask{},
		&models.ActionLog{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// PruneActionLog keeps the newest keep rows of the action log and returns
// how many were removed.
func PruneActionLog(db *gorm.DB, keep int) (int64, error) {
	var cutoff models.ActionLog
	err := db.Order("id DESC").Offset(keep).Limit(1).Find(&cutoff).Error
	if err != nil {
		return 0, fmt.Errorf("db: prune action log: %w", err)
	}
	if cutoff.ID == 0 {
		return 0, nil
	}
	res := db.Where("id <= ?", cutoff.ID).Delete(&models.ActionLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("db: prune action log: %w", res.Error)
	}
	return res.RowsAffected, nil
}
