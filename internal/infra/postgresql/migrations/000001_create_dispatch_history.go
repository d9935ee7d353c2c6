package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"smscast/internal/repository"
)

func createDispatchHistoryTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_dispatch_history",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DispatchHistoryModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_dispatch_history_created_at ON dispatch_history (created_at DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DispatchHistoryModel{})
		},
	}
}
