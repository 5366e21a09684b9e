package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SlpAus/multiworld-tracker-backend/internal/audit"
	"github.com/SlpAus/multiworld-tracker-backend/internal/game"
	"github.com/SlpAus/multiworld-tracker-backend/internal/hint"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/config"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/upstream"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
	"github.com/SlpAus/multiworld-tracker-backend/pkg/lifecycle"
)

func setupTestEnv(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&audit.Record{}, &user.User{}, &tracker.Tracker{}, &game.Game{}, &hint.Hint{}))
	database.DB = db

	config.Cfg = &config.Config{
		Tracker: config.TrackerConfig{
			UpdateIntervalMins:    5,
			FetchTimeoutSecs:      5,
			UpstreamAllowlist:     []string{"https://upstream.test/tracker/"},
			InactivityYellowHours: 24,
			InactivityRedHours:    48,
		},
	}
}

func createTracker(t *testing.T, upstreamURL string) *tracker.Tracker {
	tr := &tracker.Tracker{
		PublicID:    "room-1",
		UpstreamURL: upstreamURL,
	}
	require.NoError(t, database.DB.Create(tr).Error)
	return tr
}

// fakeFetcher 是带调用计数的假上游，block非nil时抓取会挂起直到其关闭
type fakeFetcher struct {
	calls int32
	snap  *upstream.RoomSnapshot
	err   error
	block chan struct{}
}

func (f *fakeFetcher) FetchRoom(ctx context.Context, pageURL string) (*upstream.RoomSnapshot, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	// 每次返回新的快照值，FetchedAt取当前时间
	snap := *f.snap
	snap.FetchedAt = time.Now().UTC()
	return &snap, nil
}

func (f *fakeFetcher) FetchRoomStatus(ctx context.Context, apiBaseURL, roomID string) (*upstream.RoomStatus, error) {
	return nil, upstream.ErrRoomNotFound
}

func (f *fakeFetcher) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

func singleSlotSnapshot() *upstream.RoomSnapshot {
	return &upstream.RoomSnapshot{
		Slots: []upstream.SlotRecord{{
			Position:    1,
			Name:        "Alice",
			Game:        "Ocarina of Time",
			Status:      upstream.SlotStatusPlaying,
			ChecksDone:  10,
			ChecksTotal: 120,
		}},
	}
}

func TestConcurrentCallersCoalesceIntoOneFetch(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	fake := &fakeFetcher{snap: singleSlotSnapshot(), block: make(chan struct{})}
	coord := NewCoordinator(fake, lifecycle.NewManager())

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = coord.RefreshTracker(context.Background(), tr, false)
		}(i)
	}

	// 给所有调用者时间加入同一次进行中的抓取，再放行
	time.Sleep(200 * time.Millisecond)
	close(fake.block)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, 1, fake.callCount())

	var games int64
	require.NoError(t, database.DB.Model(&game.Game{}).Count(&games).Error)
	assert.Equal(t, int64(1), games)
}

func TestIntervalGateSkipsFetch(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	fake := &fakeFetcher{snap: singleSlotSnapshot()}
	coord := NewCoordinator(fake, lifecycle.NewManager())

	require.NoError(t, coord.RefreshTracker(context.Background(), tr, false))
	assert.Equal(t, 1, fake.callCount())

	// 刷新间隔内的第二次请求直接使用库存状态
	fresh, err := tracker.GetByPublicID(tr.PublicID)
	require.NoError(t, err)
	require.NotNil(t, fresh.LastFetchedAt)
	require.NoError(t, coord.RefreshTracker(context.Background(), fresh, false))
	assert.Equal(t, 1, fake.callCount())
}

func TestForceBypassesIntervalGate(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	fake := &fakeFetcher{snap: singleSlotSnapshot()}
	coord := NewCoordinator(fake, lifecycle.NewManager())

	require.NoError(t, coord.RefreshTracker(context.Background(), tr, false))
	fresh, err := tracker.GetByPublicID(tr.PublicID)
	require.NoError(t, err)
	require.NoError(t, coord.RefreshTracker(context.Background(), fresh, true))
	assert.Equal(t, 2, fake.callCount())
}

func TestDisallowedURLNeverReachesFetcher(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://evil.test/tracker/room-1")

	fake := &fakeFetcher{snap: singleSlotSnapshot()}
	coord := NewCoordinator(fake, lifecycle.NewManager())

	err := coord.RefreshTracker(context.Background(), tr, false)
	assert.ErrorIs(t, err, ErrNotWhitelisted)
	assert.Zero(t, fake.callCount())
}

func TestNewUpstreamURLRequiresSingleRoomSegment(t *testing.T) {
	setupTestEnv(t)

	assert.True(t, ValidNewUpstreamURL("https://upstream.test/tracker/abc123"))

	// 白名单外的前缀
	assert.False(t, ValidNewUpstreamURL("https://evil.test/tracker/abc123"))
	// 前缀后缺少房间标识
	assert.False(t, ValidNewUpstreamURL("https://upstream.test/tracker/"))
	// 多余的路径段或查询串会为同一房间建出重复行
	assert.False(t, ValidNewUpstreamURL("https://upstream.test/tracker/abc123/"))
	assert.False(t, ValidNewUpstreamURL("https://upstream.test/tracker/abc123/extra"))
	assert.False(t, ValidNewUpstreamURL("https://upstream.test/tracker/abc123?x=1"))
	assert.False(t, ValidNewUpstreamURL("https://upstream.test/tracker/abc123#frag"))
}

func TestFetchFailureServesStoredState(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	// 先成功抓取一次，形成历史状态
	fake := &fakeFetcher{snap: singleSlotSnapshot()}
	coord := NewCoordinator(fake, lifecycle.NewManager())
	require.NoError(t, coord.RefreshTracker(context.Background(), tr, false))

	// 之后上游挂掉，刷新失败但GET仍能提供库存状态
	fake.err = errors.New("upstream unreachable")
	fresh, err := tracker.GetByPublicID(tr.PublicID)
	require.NoError(t, err)
	require.NoError(t, coord.EnsureFresh(context.Background(), fresh, true))

	var games int64
	require.NoError(t, database.DB.Model(&game.Game{}).Count(&games).Error)
	assert.Equal(t, int64(1), games)
}

func TestInitialFetchFailurePropagates(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	fake := &fakeFetcher{snap: singleSlotSnapshot(), err: upstream.ErrRoomNotFound}
	coord := NewCoordinator(fake, lifecycle.NewManager())

	// 从未成功抓取过的房间没有可降级的状态
	err := coord.EnsureFresh(context.Background(), tr, false)
	assert.ErrorIs(t, err, upstream.ErrRoomNotFound)
}
