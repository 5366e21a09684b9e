package hint

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SlpAus/multiworld-tracker-backend/internal/audit"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
)

// ErrInvalidClassification 表示重要性标注取值不合法
var ErrInvalidClassification = errors.New("未知的提示重要性标注")

// GetByTrackerAndID 在指定房间内按主键查找提示，未找到时返回(nil, nil)
func GetByTrackerAndID(trackerID uint, hintID uint) (*Hint, error) {
	var h Hint
	err := database.DB.Where("tracker_id = ?", trackerID).First(&h, hintID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListByTracker 返回房间内的全部提示。刷新路径传入事务句柄。
func ListByTracker(db *gorm.DB, trackerID uint) ([]Hint, error) {
	var hints []Hint
	if err := db.Where("tracker_id = ?", trackerID).Order("id").Find(&hints).Error; err != nil {
		return nil, err
	}
	return hints, nil
}

// UpdateClassification 修改一条提示的重要性标注，变更写入审计
func UpdateClassification(h *Hint, cls Classification, actor audit.Actor) error {
	if !ValidClassification(cls) {
		return fmt.Errorf("%w: %q", ErrInvalidClassification, cls)
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		before := *h
		h.Classification = cls

		if err := tx.Model(h).Update("classification", cls).Error; err != nil {
			return fmt.Errorf("无法更新提示标注: %w", err)
		}
		if _, err := audit.RecordChange(tx, audit.EntityHint, h.ID, &before, h, actor); err != nil {
			return err
		}
		return nil
	})
}
