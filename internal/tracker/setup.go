package tracker

import (
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

func migrateDB() error {
	if err := database.DB.AutoMigrate(&Tracker{}); err != nil {
		return fmt.Errorf("无法迁移Tracker表: %w", err)
	}
	return nil
}

// PrimeModule 初始化房间模块
func PrimeModule() error {
	if err := migrateDB(); err != nil {
		return err
	}
	fmt.Println("房间数据库准备就绪")
	return nil
}
