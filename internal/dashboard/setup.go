package dashboard

import (
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

func migrateDB() error {
	if err := database.DB.AutoMigrate(&Override{}); err != nil {
		return fmt.Errorf("无法迁移Override表: %w", err)
	}
	return nil
}

// PrimeModule 初始化仪表盘模块
func PrimeModule() error {
	if err := migrateDB(); err != nil {
		return err
	}
	fmt.Println("仪表盘数据库准备就绪")
	return nil
}
