package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNotificationLogsTable(),
		createNotificationPreferencesTable(),
		createNotificationTemplatesTable(),
		createRecipientsTable(),
		createInboxMessagesTable(),
	})

	return m.Migrate()
}
