package migrations

import (
	"github.com/carebridge/notification-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createInboxMessagesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_inbox_messages",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.InboxMessageModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_inbox_user_created ON inbox_messages (user_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_inbox_user_unread ON inbox_messages (user_id) WHERE read_at IS NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.InboxMessageModel{})
		},
	}
}
