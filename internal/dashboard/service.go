package dashboard

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SlpAus/multiworld-tracker-backend/internal/game"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
)

// ListTrackers 返回用户仪表盘应显示的房间：
// 用户拥有的、认领过槽位的、或显式标记为显示的，再去掉标记为隐藏的。
func ListTrackers(userID uint) ([]tracker.Tracker, error) {
	ids := make(map[uint]bool)

	var owned []uint
	if err := database.DB.Model(&tracker.Tracker{}).
		Where("owner_user_id = ?", userID).
		Pluck("id", &owned).Error; err != nil {
		return nil, fmt.Errorf("无法查询拥有的房间: %w", err)
	}
	for _, id := range owned {
		ids[id] = true
	}

	var claimed []uint
	if err := database.DB.Model(&game.Game{}).
		Where("claimed_by_user_id = ?", userID).
		Distinct().Pluck("tracker_id", &claimed).Error; err != nil {
		return nil, fmt.Errorf("无法查询认领的房间: %w", err)
	}
	for _, id := range claimed {
		ids[id] = true
	}

	var overrides []Override
	if err := database.DB.Where("user_id = ?", userID).Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("无法查询可见性覆盖: %w", err)
	}
	for _, o := range overrides {
		if o.Visibility == VisibilityShow {
			ids[o.TrackerID] = true
		} else {
			delete(ids, o.TrackerID)
		}
	}

	if len(ids) == 0 {
		return []tracker.Tracker{}, nil
	}
	list := make([]uint, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	var trackers []tracker.Tracker
	if err := database.DB.Where("id IN ?", list).Order("id").Find(&trackers).Error; err != nil {
		return nil, fmt.Errorf("无法读取房间列表: %w", err)
	}
	return trackers, nil
}

// GetOverride 读取用户对某个房间的覆盖，未设置时返回(nil, nil)
func GetOverride(userID, trackerID uint) (*Override, error) {
	var o Override
	err := database.DB.Where("user_id = ? AND tracker_id = ?", userID, trackerID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SetOverride 写入或更新可见性覆盖
func SetOverride(userID, trackerID uint, v Visibility) error {
	o := Override{UserID: userID, TrackerID: trackerID, Visibility: v}
	return database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "tracker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"visibility", "updated_at"}),
	}).Create(&o).Error
}

// ClearOverride 删除可见性覆盖，恢复默认规则
func ClearOverride(userID, trackerID uint) error {
	return database.DB.Where("user_id = ? AND tracker_id = ?", userID, trackerID).
		Delete(&Override{}).Error
}
