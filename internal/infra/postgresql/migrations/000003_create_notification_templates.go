package migrations

import (
	"github.com/carebridge/notification-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createNotificationTemplatesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_notification_templates",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationTemplateModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_templates_company_lookup ON notification_templates (company_id, event_type, channel) WHERE is_active = TRUE`,
				`CREATE INDEX IF NOT EXISTS idx_templates_default_lookup ON notification_templates (event_type, channel) WHERE company_id IS NULL AND is_default = TRUE AND is_active = TRUE`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationTemplateModel{})
		},
	}
}
