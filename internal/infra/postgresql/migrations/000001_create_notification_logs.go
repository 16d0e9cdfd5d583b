package migrations

import (
	"github.com/carebridge/notification-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createNotificationLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notification_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationLogModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_logs_user_created ON notification_logs (user_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_logs_company_created ON notification_logs (company_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_logs_status_channel ON notification_logs (status, channel)`,
				`CREATE INDEX IF NOT EXISTS idx_logs_scheduled_due ON notification_logs (scheduled_for) WHERE status = 'PENDING' AND scheduled_for IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_logs_retryable ON notification_logs (failed_at) WHERE status = 'FAILED'`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationLogModel{})
		},
	}
}
