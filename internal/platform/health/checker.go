package health

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// PerformCheck 执行一次Redis健康检查并更新全局状态。
// SQLite是权威存储且在进程内，不需要类似的巡检。
func PerformCheck() {
	ctx, cancel := context.WithTimeout(database.Ctx, pingTimeout)
	defer cancel()

	if _, err := database.RDB.Ping(ctx).Result(); err != nil {
		if database.IsRedisHealthy() {
			fmt.Printf("健康检查: Redis不可用: %v\n", err)
		}
		database.UpdateStatus(false)
		return
	}

	if !database.IsRedisHealthy() {
		fmt.Println("健康检查: Redis已恢复。")
	}
	database.UpdateStatus(true)
}

// StartRedisHealthCheck 启动一个后台Goroutine来定期、阻塞式地执行健康检查。
// 它在传入的上下文被取消后退出。
func StartRedisHealthCheck(ctx context.Context) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			PerformCheck()
		}
	}
}
