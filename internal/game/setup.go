package game

import (
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

func migrateDB() error {
	if err := database.DB.AutoMigrate(&Game{}); err != nil {
		return fmt.Errorf("无法迁移Game表: %w", err)
	}
	return nil
}

// PrimeModule 初始化槽位模块
func PrimeModule() error {
	if err := migrateDB(); err != nil {
		return err
	}
	fmt.Println("槽位数据库准备就绪")
	return nil
}
