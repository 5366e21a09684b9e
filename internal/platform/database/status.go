package database

import "sync"

// Redis在本服务中只承担辅助职责（限流计数、OAuth state）。
// 这里维护一个进程级的健康标志，供依赖方在Redis不可用时降级。

var (
	statusMutex    sync.RWMutex
	isRedisHealthy = false
)

// UpdateStatus 由健康检查器调用，更新Redis的可用状态
func UpdateStatus(healthy bool) {
	statusMutex.Lock()
	defer statusMutex.Unlock()
	isRedisHealthy = healthy
}

// IsRedisHealthy 返回最近一次健康检查得到的Redis可用状态
func IsRedisHealthy() bool {
	statusMutex.RLock()
	defer statusMutex.RUnlock()
	return isRedisHealthy
}
