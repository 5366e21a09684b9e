package user

import (
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

// migrateDB 自动迁移用户表结构
func migrateDB() error {
	if err := database.DB.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("无法迁移User表: %w", err)
	}
	return nil
}

// PrimeModule 初始化用户模块
func PrimeModule() error {
	if err := migrateDB(); err != nil {
		return err
	}
	fmt.Println("用户数据库准备就绪")
	return nil
}
