package hint

import (
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

func migrateDB() error {
	if err := database.DB.AutoMigrate(&Hint{}); err != nil {
		return fmt.Errorf("无法迁移Hint表: %w", err)
	}
	return nil
}

// PrimeModule 初始化提示模块
func PrimeModule() error {
	if err := migrateDB(); err != nil {
		return err
	}
	fmt.Println("提示数据库准备就绪")
	return nil
}
