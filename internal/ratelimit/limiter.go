package ratelimit

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

const (
	// mutationKeyPrefix 是Redis中滑动窗口有序集合的键名前缀
	mutationKeyPrefix = "ip_mutations:"
	// mutationWindow 是变更请求计数的时间窗口
	mutationWindow = time.Minute
	// mutationTTL 比窗口稍长，作为过期缓冲
	mutationTTL = 2 * time.Minute
	// mutationLimit 是单个IP在窗口内允许的变更请求数
	mutationLimit = 60
)

// generateMemberID 根据时间生成抗冲突的成员ID。
// 结构: [ 8字节纳秒时间戳 (Big Endian) | 8字节随机数 ]
func generateMemberID(t time.Time) (string, error) {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], uint64(t.UnixNano()))
	if _, err := rand.Read(b[8:16]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// countMutation 在Redis中为一个IP原子地记录一次变更请求，
// 并返回其在窗口内的总请求数。
func countMutation(ip string, at time.Time) (int64, error) {
	if net.ParseIP(ip) == nil {
		return 0, fmt.Errorf("无效的客户端IP %q", ip)
	}

	key := mutationKeyPrefix + ip
	minScore := float64(at.Add(-mutationWindow).UnixMicro())
	memberID, err := generateMemberID(at)
	if err != nil {
		return 0, fmt.Errorf("生成成员ID失败: %w", err)
	}

	pipe := database.RDB.TxPipeline()
	pipe.ZRemRangeByScore(database.Ctx, key, "-inf", fmt.Sprintf("(%f", minScore))
	pipe.ZAdd(database.Ctx, key, redis.Z{Score: float64(at.UnixMicro()), Member: memberID})
	pipe.Expire(database.Ctx, key, mutationTTL)
	countCmd := pipe.ZCard(database.Ctx, key)

	if _, err := pipe.Exec(database.Ctx); err != nil {
		return 0, fmt.Errorf("执行IP计数事务失败: %w", err)
	}
	return countCmd.Result()
}
