package game

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/upstream"
)

// GetByTrackerAndID 在指定房间内按主键查找槽位，未找到时返回(nil, nil)
func GetByTrackerAndID(trackerID uint, gameID uint) (*Game, error) {
	var g Game
	err := database.DB.Where("tracker_id = ?", trackerID).First(&g, gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListByTracker 按槽位序号排序返回房间内的全部槽位。
// 刷新路径传入事务句柄，读写都发生在同一个事务里。
func ListByTracker(db *gorm.DB, trackerID uint) ([]Game, error) {
	var games []Game
	if err := db.Where("tracker_id = ?", trackerID).Order("position").Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

// UpstreamFieldsFromRecord 把一行上游槽位数据换算成落库字段。
// 上游给出的是距最后活动的时长，落库换算成时间点。
func UpstreamFieldsFromRecord(rec upstream.SlotRecord, fetchedAt time.Time) UpstreamFields {
	f := UpstreamFields{
		Name:          rec.Name,
		GameTitle:     rec.Game,
		TrackerStatus: rec.Status,
		ChecksDone:    rec.ChecksDone,
		ChecksTotal:   rec.ChecksTotal,
	}
	if rec.LastActivity != nil {
		at := fetchedAt.Add(-*rec.LastActivity)
		f.LastActivityAt = &at
	}
	return f
}

// NewFromUpstream 为上游新出现的槽位构造Game行，用户字段取默认值
func NewFromUpstream(trackerID uint, rec upstream.SlotRecord, fetchedAt time.Time) Game {
	f := UpstreamFieldsFromRecord(rec, fetchedAt)
	g := Game{
		TrackerID:      trackerID,
		Position:       rec.Position,
		UpstreamFields: f,
	}
	g.PingPreference = tracker.PingNever
	g.Progression = ProgressionUnknown
	g.Availability = AvailabilityUnknown
	g.Completion = CompletionFromUpstream(f)
	return g
}

// ApplyUpstream 把上游字段组覆盖到已有槽位上，并单调推进完成状态。
// 只写上游独占的列和completion，用户字段不会被触碰。
func ApplyUpstream(tx *gorm.DB, g *Game, f UpstreamFields) error {
	// 上游的活动时长快照有分钟级的漂移，差距不到一分钟时保留原值
	if g.LastActivityAt != nil && f.LastActivityAt != nil {
		if d := f.LastActivityAt.Sub(*g.LastActivityAt); d > -time.Minute && d < time.Minute {
			f.LastActivityAt = g.LastActivityAt
		}
	}
	g.UpstreamFields = f
	g.Completion = AdvanceCompletion(g.Completion, CompletionFromUpstream(f))

	return tx.Model(&Game{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
		"name":             f.Name,
		"game_title":       f.GameTitle,
		"tracker_status":   f.TrackerStatus,
		"checks_done":      f.ChecksDone,
		"checks_total":     f.ChecksTotal,
		"last_activity_at": f.LastActivityAt,
		"completion":       g.Completion,
	}).Error
}
