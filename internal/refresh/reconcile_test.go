package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/multiworld-tracker-backend/internal/game"
	"github.com/SlpAus/multiworld-tracker-backend/internal/hint"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/upstream"
)

func snapshotOf(slots []upstream.SlotRecord, hints []upstream.HintRecord) *upstream.RoomSnapshot {
	return &upstream.RoomSnapshot{
		Slots:     slots,
		Hints:     hints,
		FetchedAt: time.Now().UTC(),
	}
}

func twoSlots() []upstream.SlotRecord {
	return []upstream.SlotRecord{
		{Position: 1, Name: "Alice", Game: "Ocarina of Time",
			Status: upstream.SlotStatusPlaying, ChecksDone: 8, ChecksTotal: 10},
		{Position: 2, Name: "Bob", Game: "Factorio",
			Status: upstream.SlotStatusConnected, ChecksDone: 0, ChecksTotal: 90},
	}
}

func loadGames(t *testing.T, trackerID uint) []game.Game {
	games, err := game.ListByTracker(database.DB, trackerID)
	require.NoError(t, err)
	return games
}

func loadHints(t *testing.T, trackerID uint) []hint.Hint {
	hints, err := hint.ListByTracker(database.DB, trackerID)
	require.NoError(t, err)
	return hints
}

func TestReconcileInsertsNewSlotsWithDefaults(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	start := time.Now().UTC()
	snap := snapshotOf(twoSlots(), []upstream.HintRecord{
		{Finder: "Alice", Receiver: "Bob", Item: "Iron Axe", Location: "Deku Tree", Entrance: "Vanilla"},
	})
	require.NoError(t, applySnapshot(tr, snap, start))

	games := loadGames(t, tr.ID)
	require.Len(t, games, 2)
	assert.Equal(t, "Alice", games[0].Name)
	assert.Equal(t, game.AvailabilityUnknown, games[0].Availability)
	assert.Equal(t, game.ProgressionUnknown, games[0].Progression)
	assert.Equal(t, tracker.PingNever, games[0].PingPreference)
	assert.Equal(t, game.CompletionIncomplete, games[0].Completion)

	hints := loadHints(t, tr.ID)
	require.Len(t, hints, 1)
	assert.Equal(t, hint.ClassificationUnknown, hints[0].Classification)
	require.NotNil(t, hints[0].ReceiverGameID)
	assert.Equal(t, games[1].ID, *hints[0].ReceiverGameID)

	fresh, err := tracker.GetByPublicID(tr.PublicID)
	require.NoError(t, err)
	require.NotNil(t, fresh.LastFetchedAt)
}

func TestReconcileIsIdempotent(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	snap := snapshotOf(twoSlots(), []upstream.HintRecord{
		{Finder: "Alice", Receiver: "Bob", Item: "Iron Axe", Location: "Deku Tree", Entrance: "Vanilla"},
		{Finder: "Bob", Receiver: "Alice", Item: "Hookshot", Location: "Rocket Silo", Entrance: "Vanilla"},
	})
	require.NoError(t, applySnapshot(tr, snap, time.Now().UTC()))

	// 中间有用户编辑，再次应用同一批数据不应该产生任何额外变化
	games := loadGames(t, tr.ID)
	require.NoError(t, database.DB.Model(&games[0]).Update("notes", "我的槽位").Error)

	require.NoError(t, applySnapshot(tr, snap, time.Now().UTC()))

	games = loadGames(t, tr.ID)
	require.Len(t, games, 2)
	assert.Equal(t, "我的槽位", games[0].Notes)
	assert.Len(t, loadHints(t, tr.ID), 2)
}

func TestReconcileOverwritesUpstreamFieldsOnly(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")
	require.NoError(t, applySnapshot(tr, snapshotOf(twoSlots(), nil), time.Now().UTC()))

	games := loadGames(t, tr.ID)
	require.NoError(t, database.DB.Model(&games[0]).Updates(map[string]interface{}{
		"notes":        "别动我的备注",
		"availability": game.AvailabilityClaimed,
	}).Error)

	// 上游改了槽位名和进度
	next := snapshotOf([]upstream.SlotRecord{
		{Position: 1, Name: "Alice2", Game: "Ocarina of Time",
			Status: upstream.SlotStatusPlaying, ChecksDone: 9, ChecksTotal: 10},
		{Position: 2, Name: "Bob", Game: "Factorio",
			Status: upstream.SlotStatusConnected, ChecksDone: 0, ChecksTotal: 90},
	}, nil)
	require.NoError(t, applySnapshot(tr, next, time.Now().UTC()))

	games = loadGames(t, tr.ID)
	assert.Equal(t, "Alice2", games[0].Name)
	assert.Equal(t, 9, games[0].ChecksDone)
	assert.Equal(t, "别动我的备注", games[0].Notes)
	assert.Equal(t, game.AvailabilityClaimed, games[0].Availability)
}

func TestCompletionAdvancesDirectlyToDone(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	// 8/10 未达成目标 => incomplete
	require.NoError(t, applySnapshot(tr, snapshotOf([]upstream.SlotRecord{
		{Position: 1, Name: "Alice", Game: "OoT",
			Status: upstream.SlotStatusPlaying, ChecksDone: 8, ChecksTotal: 10},
	}, nil), time.Now().UTC()))
	games := loadGames(t, tr.ID)
	require.Equal(t, game.CompletionIncomplete, games[0].Completion)

	// 一批之内同时满足全检查和目标 => 直接到done，不经过all_checks
	require.NoError(t, applySnapshot(tr, snapshotOf([]upstream.SlotRecord{
		{Position: 1, Name: "Alice", Game: "OoT",
			Status: upstream.SlotStatusGoalCompleted, ChecksDone: 10, ChecksTotal: 10},
	}, nil), time.Now().UTC()))
	games = loadGames(t, tr.ID)
	assert.Equal(t, game.CompletionDone, games[0].Completion)
}

func TestCompletionNeverRegressesOnRefresh(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	require.NoError(t, applySnapshot(tr, snapshotOf([]upstream.SlotRecord{
		{Position: 1, Name: "Alice", Game: "OoT",
			Status: upstream.SlotStatusGoalCompleted, ChecksDone: 10, ChecksTotal: 10},
	}, nil), time.Now().UTC()))
	games := loadGames(t, tr.ID)
	require.Equal(t, game.CompletionDone, games[0].Completion)

	// 上游数据回退（例如重开房间），完成状态保持done
	require.NoError(t, applySnapshot(tr, snapshotOf([]upstream.SlotRecord{
		{Position: 1, Name: "Alice", Game: "OoT",
			Status: upstream.SlotStatusPlaying, ChecksDone: 3, ChecksTotal: 10},
	}, nil), time.Now().UTC()))
	games = loadGames(t, tr.ID)
	assert.Equal(t, game.CompletionDone, games[0].Completion)
	assert.Equal(t, 3, games[0].ChecksDone)
}

func TestLastActivityJitterSuppressed(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	slotWithActivity := func(ago time.Duration) []upstream.SlotRecord {
		return []upstream.SlotRecord{{
			Position: 1, Name: "Alice", Game: "OoT",
			Status: upstream.SlotStatusPlaying, ChecksDone: 8, ChecksTotal: 10,
			LastActivity: &ago,
		}}
	}

	require.NoError(t, applySnapshot(tr, snapshotOf(slotWithActivity(10*time.Second), nil), time.Now().UTC()))
	games := loadGames(t, tr.ID)
	require.NotNil(t, games[0].LastActivityAt)
	first := *games[0].LastActivityAt

	// 上游的活动时长带分钟级漂移，一分钟以内的变化不落库
	require.NoError(t, applySnapshot(tr, snapshotOf(slotWithActivity(40*time.Second), nil), time.Now().UTC()))
	games = loadGames(t, tr.ID)
	require.NotNil(t, games[0].LastActivityAt)
	assert.True(t, first.Equal(*games[0].LastActivityAt))

	// 真正的活动变化照常更新
	require.NoError(t, applySnapshot(tr, snapshotOf(slotWithActivity(10*time.Minute), nil), time.Now().UTC()))
	games = loadGames(t, tr.ID)
	require.NotNil(t, games[0].LastActivityAt)
	assert.False(t, first.Equal(*games[0].LastActivityAt))
}

func TestMissingSlotLeftUntouched(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")
	require.NoError(t, applySnapshot(tr, snapshotOf(twoSlots(), nil), time.Now().UTC()))

	// 槽位2从上游消失：按异常处理，行保持原状
	require.NoError(t, applySnapshot(tr, snapshotOf([]upstream.SlotRecord{
		{Position: 1, Name: "Alice", Game: "Ocarina of Time",
			Status: upstream.SlotStatusPlaying, ChecksDone: 8, ChecksTotal: 10},
	}, nil), time.Now().UTC()))

	games := loadGames(t, tr.ID)
	require.Len(t, games, 2)
	assert.Equal(t, "Bob", games[1].Name)
	assert.Equal(t, 90, games[1].ChecksTotal)
}

func TestHintClassificationSurvivesFoundUpdate(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	rec := upstream.HintRecord{
		Finder: "Alice", Receiver: "Bob",
		Item: "Iron Axe", Location: "Deku Tree", Entrance: "Vanilla", Found: false,
	}
	require.NoError(t, applySnapshot(tr, snapshotOf(twoSlots(), []upstream.HintRecord{rec}), time.Now().UTC()))

	hints := loadHints(t, tr.ID)
	require.Len(t, hints, 1)
	require.NoError(t, database.DB.Model(&hints[0]).
		Update("classification", hint.ClassificationCritical).Error)

	rec.Found = true
	require.NoError(t, applySnapshot(tr, snapshotOf(twoSlots(), []upstream.HintRecord{rec}), time.Now().UTC()))

	hints = loadHints(t, tr.ID)
	require.Len(t, hints, 1)
	assert.True(t, hints[0].Found)
	assert.Equal(t, hint.ClassificationCritical, hints[0].Classification)
}

func TestLeftoverHintsDeleted(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	require.NoError(t, applySnapshot(tr, snapshotOf(twoSlots(), []upstream.HintRecord{
		{Finder: "Alice", Receiver: "Bob", Item: "Iron Axe", Location: "Deku Tree", Entrance: "Vanilla"},
		{Finder: "Alice", Receiver: "Bob", Item: "Stale Hint", Location: "Old Cave", Entrance: "Vanilla"},
	}), time.Now().UTC()))
	require.Len(t, loadHints(t, tr.ID), 2)

	require.NoError(t, applySnapshot(tr, snapshotOf(twoSlots(), []upstream.HintRecord{
		{Finder: "Alice", Receiver: "Bob", Item: "Iron Axe", Location: "Deku Tree", Entrance: "Vanilla"},
	}), time.Now().UTC()))

	hints := loadHints(t, tr.ID)
	require.Len(t, hints, 1)
	assert.Equal(t, "Iron Axe", hints[0].Item)
}

func TestItemLinkHintHasNoReceiver(t *testing.T) {
	setupTestEnv(t)
	tr := createTracker(t, "https://upstream.test/tracker/room-1")

	// 接收方不是房间内的槽位，按物品链接组处理
	require.NoError(t, applySnapshot(tr, snapshotOf(twoSlots(), []upstream.HintRecord{
		{Finder: "Alice", Receiver: "Sword Group", Item: "Nail", Location: "Cave", Entrance: "Vanilla"},
	}), time.Now().UTC()))

	hints := loadHints(t, tr.ID)
	require.Len(t, hints, 1)
	assert.Nil(t, hints[0].ReceiverGameID)
	assert.Equal(t, "Sword Group", hints[0].ItemLinkName)
}
