package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/config"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/upstream"
	"github.com/SlpAus/multiworld-tracker-backend/pkg/lifecycle"
)

// ErrNotWhitelisted 表示上游URL不匹配任何允许的前缀。
// 创建房间时就会拒绝，这里只是抓取前的最后一道防线。
var ErrNotWhitelisted = errors.New("上游URL不在允许名单内")

// Allowed 检查上游URL是否命中配置的前缀白名单
func Allowed(upstreamURL string) bool {
	for _, prefix := range config.Cfg.Tracker.UpstreamAllowlist {
		if strings.HasPrefix(upstreamURL, prefix) {
			return true
		}
	}
	return false
}

// ValidNewUpstreamURL 校验用于创建房间的上游URL。
// 除了命中白名单前缀，前缀之后必须恰好是一段非空的房间标识：
// 带多余斜杠或查询串的变体会为同一个房间建出重复的行。
func ValidNewUpstreamURL(upstreamURL string) bool {
	for _, prefix := range config.Cfg.Tracker.UpstreamAllowlist {
		if id, ok := strings.CutPrefix(upstreamURL, prefix); ok {
			return id != "" && !strings.ContainsAny(id, "/?#")
		}
	}
	return false
}

// flight 是一次进行中的抓取。等待者在done关闭后读取err。
type flight struct {
	done chan struct{}
	err  error
}

// Coordinator 对每个房间的上游抓取做闸门和合并：
// 刷新间隔内直接返回库存状态；同一房间的并发刷新合并成一次抓取。
// 进行中表是纯进程内状态，重启后最多多抓一次。
type Coordinator struct {
	fetcher upstream.Fetcher
	manager *lifecycle.Manager

	mu       sync.Mutex
	inflight map[uint]*flight
}

// NewCoordinator 创建抓取协调器
func NewCoordinator(f upstream.Fetcher, m *lifecycle.Manager) *Coordinator {
	return &Coordinator{
		fetcher:  f,
		manager:  m,
		inflight: make(map[uint]*flight),
	}
}

// join 加入或开启房间的进行中抓取。
// started为true表示调用者开启了新抓取，需要负责执行它。
func (c *Coordinator) join(trackerID uint) (fl *flight, started bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.inflight[trackerID]; ok {
		return existing, false
	}
	fl = &flight{done: make(chan struct{})}
	c.inflight[trackerID] = fl
	return fl, true
}

// finish 把抓取从进行中表移除并唤醒所有等待者
func (c *Coordinator) finish(trackerID uint, fl *flight) {
	c.mu.Lock()
	delete(c.inflight, trackerID)
	c.mu.Unlock()
	close(fl.done)
}

// RefreshTracker 确保房间状态不老于配置的刷新间隔。
// force为true时跳过间隔闸门（但不打断已在进行中的抓取）。
// 返回nil表示库存状态可用：可能刚刷新过，也可能在间隔内无需刷新。
func (c *Coordinator) RefreshTracker(ctx context.Context, t *tracker.Tracker, force bool) error {
	if !force && t.LastFetchedAt != nil &&
		time.Since(*t.LastFetchedAt) < config.Cfg.Tracker.UpdateInterval() {
		return nil
	}
	if !Allowed(t.UpstreamURL) {
		return ErrNotWhitelisted
	}

	fl, started := c.join(t.ID)
	if started {
		// 抓取在独立的Goroutine上执行，并注册到生命周期管理器：
		// 单个等待者断开不会取消共享的抓取，停机时会等它的事务提交完
		handle := c.manager.NewServiceHandle("upstream-refresh")
		go c.run(handle, *t, fl)
	}

	select {
	case <-fl.done:
		return fl.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnsureFresh 刷新房间并应用降级策略：抓取失败但已有历史状态时，
// 记一条警告并继续提供库存状态；从未成功抓取过的房间则把错误交给调用方。
// 成功返回时t已被刷新为落库后的最新状态。
func (c *Coordinator) EnsureFresh(ctx context.Context, t *tracker.Tracker, force bool) error {
	err := c.RefreshTracker(ctx, t, force)
	if err != nil {
		// 调用方自己断开不算抓取失败，不做降级
		if ctx.Err() != nil {
			return err
		}
		if t.LastFetchedAt == nil {
			return err
		}
		fmt.Printf("警告: 刷新房间 %s 失败，继续提供库存状态: %v\n", t.PublicID, err)
	}

	fresh, lookupErr := tracker.GetByPublicID(t.PublicID)
	if lookupErr != nil {
		return lookupErr
	}
	if fresh != nil {
		*t = *fresh
	}
	return nil
}

// run 执行一次完整的抓取和落库
func (c *Coordinator) run(handle *lifecycle.Handle, t tracker.Tracker, fl *flight) {
	defer handle.Close()

	// 抓取开始时间作为下一个刷新窗口的闸门，成功时随同步事务一起落库
	start := time.Now().UTC()

	fetchCtx, cancel := context.WithTimeout(handle.Ctx(), config.Cfg.Tracker.FetchTimeout())
	snap, err := c.fetcher.FetchRoom(fetchCtx, t.UpstreamURL)
	cancel()
	if err != nil {
		fl.err = err
		c.finish(t.ID, fl)
		return
	}

	fl.err = applySnapshot(&t, snap, start)
	c.finish(t.ID, fl)

	// 端口查询是顺带的，失败或跳过都不影响这次刷新的结果
	c.maybeCheckPort(handle.Ctx(), &t)
}

// maybeCheckPort 按需查询房间状态API，刷新端口号。
// 受next_port_check_at闸门限制；任何失败只记日志。
func (c *Coordinator) maybeCheckPort(ctx context.Context, t *tracker.Tracker) {
	base, roomID, ok := t.Room()
	if !ok {
		return
	}
	now := time.Now().UTC()
	if t.NextPortCheckAt != nil && now.Before(*t.NextPortCheckAt) {
		return
	}

	statusCtx, cancel := context.WithTimeout(ctx, config.Cfg.Tracker.FetchTimeout())
	status, err := c.fetcher.FetchRoomStatus(statusCtx, base+"/api/", roomID)
	cancel()
	if err != nil {
		fmt.Printf("警告: 查询房间 %s 端口失败: %v\n", t.PublicID, err)
		return
	}

	// 房间在最后活动+超时的时刻关闭，之后端口才可能变化
	next := status.LastActivity.Add(time.Duration(status.TimeoutSec) * time.Second)
	if earliest := now.Add(time.Minute); next.Before(earliest) {
		next = earliest
	}
	port := status.LastPort
	if err := tracker.UpdatePort(database.DB, t.ID, &port, next); err != nil {
		fmt.Printf("警告: 保存房间 %s 端口失败: %v\n", t.PublicID, err)
	}
}
