package startup

import (
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/audit"
	"github.com/SlpAus/multiworld-tracker-backend/internal/dashboard"
	"github.com/SlpAus/multiworld-tracker-backend/internal/game"
	"github.com/SlpAus/multiworld-tracker-backend/internal/hint"
	"github.com/SlpAus/multiworld-tracker-backend/internal/refresh"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
	"github.com/SlpAus/multiworld-tracker-backend/pkg/lifecycle"
)

// InitializeApplication 是应用启动时执行的总入口，按依赖序初始化各模块
func InitializeApplication(manager *lifecycle.Manager) error {
	fmt.Println("开始应用初始化...")

	if err := audit.PrimeModule(); err != nil {
		return err
	}
	if err := user.PrimeModule(); err != nil {
		return err
	}
	if err := tracker.PrimeModule(); err != nil {
		return err
	}
	if err := game.PrimeModule(); err != nil {
		return err
	}
	if err := hint.PrimeModule(); err != nil {
		return err
	}
	if err := dashboard.PrimeModule(); err != nil {
		return err
	}
	if err := refresh.PrimeModule(manager); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}
