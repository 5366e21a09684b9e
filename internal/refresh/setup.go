package refresh

import (
	"fmt"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/config"
	"github.com/SlpAus/multiworld-tracker-backend/internal/upstream"
	"github.com/SlpAus/multiworld-tracker-backend/pkg/lifecycle"
)

// Coord 是全局的抓取协调器，由PrimeModule初始化
var Coord *Coordinator

// PrimeModule 初始化刷新模块
func PrimeModule(manager *lifecycle.Manager) error {
	fetcher := upstream.NewHTTPFetcher(config.Cfg.Tracker.FetchTimeout())
	Coord = NewCoordinator(fetcher, manager)
	fmt.Println("上游刷新协调器准备就绪")
	return nil
}
