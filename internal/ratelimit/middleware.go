package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

// MutationLimiter 是挂在所有变更接口上的每IP频率限制。
// Redis不健康时放行：限流是保护措施，不应该变成单点故障。
func MutationLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !database.IsRedisHealthy() {
			c.Next()
			return
		}

		count, err := countMutation(c.ClientIP(), time.Now())
		if err != nil {
			fmt.Printf("警告: IP频率计数失败，放行请求: %v\n", err)
			c.Next()
			return
		}

		if count > mutationLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "操作过于频繁，请稍后再试",
			})
			return
		}
		c.Next()
	}
}
