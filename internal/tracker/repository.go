package tracker

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/config"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

// GetByPublicID 按对外标识查找Tracker，未找到时返回(nil, nil)
func GetByPublicID(publicID string) (*Tracker, error) {
	var t Tracker
	err := database.DB.Where("public_id = ?", publicID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByUpstreamURL 按上游URL查找Tracker，未找到时返回(nil, nil)
func GetByUpstreamURL(upstreamURL string) (*Tracker, error) {
	var t Tracker
	err := database.DB.Where("upstream_url = ?", upstreamURL).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindOrCreateByUpstreamURL 按上游URL取得Tracker，不存在则创建。
// 创建对上游URL幂等：并发创建时靠唯一索引兜底，冲突方改为读取已有行。
func FindOrCreateByUpstreamURL(upstreamURL string) (*Tracker, bool, error) {
	existing, err := GetByUpstreamURL(upstreamURL)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	t := Tracker{
		PublicID:              uuid.NewString(),
		UpstreamURL:           upstreamURL,
		InactivityYellowHours: config.Cfg.Tracker.InactivityYellowHours,
		InactivityRedHours:    config.Cfg.Tracker.InactivityRedHours,
	}
	if err := database.DB.Create(&t).Error; err != nil {
		// 大概率是并发创建撞上了唯一索引
		existing, lookupErr := GetByUpstreamURL(upstreamURL)
		if lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return &t, true, nil
}

// MarkFetched 记录一次成功抓取的开始时间，作为下一个刷新窗口的闸门
func MarkFetched(tx *gorm.DB, trackerID uint, at time.Time) error {
	return tx.Model(&Tracker{}).Where("id = ?", trackerID).
		Update("last_fetched_at", at).Error
}

// UpdatePort 更新房间端口和下一次端口查询时间
func UpdatePort(tx *gorm.DB, trackerID uint, port *int, nextCheckAt time.Time) error {
	return tx.Model(&Tracker{}).Where("id = ?", trackerID).
		Updates(map[string]interface{}{
			"last_port":          port,
			"next_port_check_at": nextCheckAt,
		}).Error
}
