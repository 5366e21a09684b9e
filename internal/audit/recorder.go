package audit

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// RecordChange 对一次实体变更计算字段级diff，并在调用方的事务内持久化审计记录。
// 审计写入失败会使整个事务回滚：不存在有变更无审计、或有审计无变更的状态。
// 如果没有任何字段变化则不写入记录，返回false。
func RecordChange(tx *gorm.DB, kind string, entityID uint, before, after interface{}, actor Actor) (bool, error) {
	changes, err := Diff(before, after)
	if err != nil {
		return false, err
	}
	if len(changes) == 0 {
		return false, nil
	}

	payload, err := json.Marshal(changes)
	if err != nil {
		return false, fmt.Errorf("无法序列化审计diff: %w", err)
	}

	record := Record{
		EntityKind:  kind,
		EntityID:    entityID,
		ActorUserID: actor.UserID,
		ActorIP:     actor.IP,
		AuthSource:  actor.Source,
		Changes:     string(payload),
	}

	if err := tx.Create(&record).Error; err != nil {
		return false, fmt.Errorf("无法写入审计记录: %w", err)
	}
	return true, nil
}
