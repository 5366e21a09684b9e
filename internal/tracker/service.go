package tracker

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SlpAus/multiworld-tracker-backend/internal/audit"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

var (
	// ErrPermissionDenied 表示调用者无权做这次设置变更
	ErrPermissionDenied = errors.New("无权修改该房间的设置")
	// ErrInvalidSettings 表示设置取值不合法
	ErrInvalidSettings = errors.New("设置取值不合法")
)

// SettingsUpdate 是一次房间设置变更的完整目标状态
type SettingsUpdate struct {
	Title                 string
	Description           string
	OwnerUserID           *uint
	LockSettings          bool
	RequireAuthToClaim    bool
	GlobalPingPolicy      *PingPreference
	RoomLink              string
	InactivityYellowHours int
	InactivityRedHours    int
}

func ownerEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// validateSettings 检查与权限无关的取值约束
func validateSettings(t *Tracker, upd SettingsUpdate) error {
	if upd.InactivityYellowHours < 0 || upd.InactivityYellowHours > upd.InactivityRedHours {
		return fmt.Errorf("%w: 不活跃阈值需满足 0 <= 黄 <= 红", ErrInvalidSettings)
	}
	if upd.GlobalPingPolicy != nil && !ValidPingPreference(*upd.GlobalPingPolicy) {
		return fmt.Errorf("%w: 未知的提醒策略 %q", ErrInvalidSettings, *upd.GlobalPingPolicy)
	}
	if upd.RequireAuthToClaim && !upd.LockSettings {
		return fmt.Errorf("%w: 认领需登录只在设置锁定时有意义", ErrInvalidSettings)
	}
	if upd.LockSettings && upd.OwnerUserID == nil {
		return fmt.Errorf("%w: 锁定设置前需要先认领房间", ErrInvalidSettings)
	}
	if upd.RoomLink != "" && !ValidRoomLink(t.UpstreamURL, upd.RoomLink) {
		return fmt.Errorf("%w: 房间链接必须与上游同源且形如 /room/{id}", ErrInvalidSettings)
	}
	return nil
}

// authorizeSettings 检查调用者是否有权做出这次变更
func authorizeSettings(t *Tracker, upd SettingsUpdate, caller *user.User) error {
	isOwner := t.OwnerUserID != nil && caller != nil && *t.OwnerUserID == caller.ID

	if !ownerEqual(upd.OwnerUserID, t.OwnerUserID) {
		// 只能把房主设成自己或者空，不能替别人认领
		if upd.OwnerUserID != nil && (caller == nil || *upd.OwnerUserID != caller.ID) {
			return ErrPermissionDenied
		}
		// 已有房主时，只有房主本人能转让或放弃
		if t.OwnerUserID != nil && !isOwner {
			return ErrPermissionDenied
		}
	}

	// 锁定开关和描述始终只有房主能动，当前未锁定也一样。
	// willOwn覆盖这次请求中认领房间的调用者
	willOwn := upd.OwnerUserID != nil && caller != nil && *upd.OwnerUserID == caller.ID
	if (upd.LockSettings != t.LockSettings || upd.Description != t.Description) &&
		!isOwner && !willOwn {
		return ErrPermissionDenied
	}

	settingsChanged := upd.Title != t.Title ||
		upd.Description != t.Description ||
		upd.LockSettings != t.LockSettings ||
		upd.RequireAuthToClaim != t.RequireAuthToClaim ||
		upd.RoomLink != t.RoomLink ||
		upd.InactivityYellowHours != t.InactivityYellowHours ||
		upd.InactivityRedHours != t.InactivityRedHours ||
		(upd.GlobalPingPolicy == nil) != (t.GlobalPingPolicy == nil) ||
		(upd.GlobalPingPolicy != nil && t.GlobalPingPolicy != nil && *upd.GlobalPingPolicy != *t.GlobalPingPolicy)

	if settingsChanged && t.LockSettings && !isOwner {
		return ErrPermissionDenied
	}
	return nil
}

// UpdateSettings 应用一次房间设置变更，并在同一事务内写入审计记录。
// 房间链接变化时把下一次端口查询时间清零，下次刷新会立即查询新房间。
func UpdateSettings(t *Tracker, upd SettingsUpdate, caller *user.User, actor audit.Actor) error {
	if err := validateSettings(t, upd); err != nil {
		return err
	}
	if err := authorizeSettings(t, upd, caller); err != nil {
		return err
	}

	before := *t
	t.Title = upd.Title
	t.Description = upd.Description
	t.OwnerUserID = upd.OwnerUserID
	t.LockSettings = upd.LockSettings
	t.RequireAuthToClaim = upd.RequireAuthToClaim
	t.GlobalPingPolicy = upd.GlobalPingPolicy
	t.InactivityYellowHours = upd.InactivityYellowHours
	t.InactivityRedHours = upd.InactivityRedHours
	if upd.RoomLink != t.RoomLink {
		t.RoomLink = upd.RoomLink
		t.NextPortCheckAt = nil
		if upd.RoomLink == "" {
			t.LastPort = nil
		}
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("无法保存房间设置: %w", err)
		}
		if _, err := audit.RecordChange(tx, audit.EntityTracker, t.ID, &before, t, actor); err != nil {
			return err
		}
		return nil
	})
}
