package audit

import (
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

// migrateDB 负责自动迁移数据库表结构
func migrateDB() error {
	if err := database.DB.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("无法迁移audit表: %w", err)
	}
	return nil
}

// PrimeModule 是audit模块的初始化总入口
func PrimeModule() error {
	if err := migrateDB(); err != nil {
		return err
	}
	fmt.Println("Audit数据库表迁移成功。")
	return nil
}
