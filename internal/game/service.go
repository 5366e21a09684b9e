package game

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SlpAus/multiworld-tracker-backend/internal/audit"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

var (
	// ErrOwnershipConflict 表示归属字段的条件更新没有命中：
	// 调用者看到的归属快照已经过期
	ErrOwnershipConflict = errors.New("槽位归属已被他人修改")
	// ErrPreconditionRequired 表示变更归属时没有提供归属快照
	ErrPreconditionRequired = errors.New("变更归属需要提供之前观察到的归属状态")
	// ErrClaimForbidden 表示试图替别人认领槽位
	ErrClaimForbidden = errors.New("只能为自己认领槽位")
	// ErrAuthRequired 表示该房间要求登录后才能认领
	ErrAuthRequired = errors.New("该房间要求登录后才能认领槽位")
	// ErrAccountClaimRequired 表示该房间只接受绑定账号的认领，不接受自由文本用户名
	ErrAccountClaimRequired = errors.New("该房间只允许以账号身份认领槽位")
	// ErrInvalidUpdate 表示字段取值或状态迁移不合法
	ErrInvalidUpdate = errors.New("槽位更新不合法")
)

// OwnerSnapshot 是调用者最后一次观察到的归属字段
type OwnerSnapshot struct {
	ClaimedByUserID *uint
	DiscordUsername *string
}

// Update 是一次槽位用户字段变更的完整目标状态
type Update struct {
	ClaimedByUserID *uint
	DiscordUsername *string
	Notes           string
	PingPreference  tracker.PingPreference
	Progression     Progression
	Availability    Availability
	Completion      CompletionStatus
	LastCheckedAt   *time.Time
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// validateUpdate 检查枚举取值和完成状态的迁移方向
func validateUpdate(g *Game, upd Update) error {
	if !tracker.ValidPingPreference(upd.PingPreference) {
		return fmt.Errorf("%w: 未知的提醒偏好 %q", ErrInvalidUpdate, upd.PingPreference)
	}
	if !ValidProgression(upd.Progression) {
		return fmt.Errorf("%w: 未知的推进状态 %q", ErrInvalidUpdate, upd.Progression)
	}
	if !ValidAvailability(upd.Availability) {
		return fmt.Errorf("%w: 未知的可用性 %q", ErrInvalidUpdate, upd.Availability)
	}
	if !ValidCompletionStatus(upd.Completion) {
		return fmt.Errorf("%w: 未知的完成状态 %q", ErrInvalidUpdate, upd.Completion)
	}
	if upd.Completion != g.Completion {
		if g.Completion == CompletionReleased {
			return fmt.Errorf("%w: released是终态", ErrInvalidUpdate)
		}
		if upd.Completion != CompletionReleased && upd.Completion.Rank() < g.Completion.Rank() {
			return fmt.Errorf("%w: 完成状态不能回退", ErrInvalidUpdate)
		}
	}
	return nil
}

// authorizeClaim 检查一次归属变更是否符合房间的认领规则
func authorizeClaim(t *tracker.Tracker, upd Update, caller *user.User) error {
	if upd.ClaimedByUserID != nil {
		if caller == nil {
			return ErrAuthRequired
		}
		if *upd.ClaimedByUserID != caller.ID {
			return ErrClaimForbidden
		}
		return nil
	}
	// 要求登录的房间不接受自由文本认领，已登录的调用者也一样：
	// 这类房间的认领必须绑定账号
	if upd.DiscordUsername != nil && t.RequireAuthToClaim {
		if caller == nil {
			return ErrAuthRequired
		}
		return ErrAccountClaimRequired
	}
	return nil
}

// scopeOwner 把归属快照转成条件更新的WHERE谓词，空值用IS NULL表达
func scopeOwner(q *gorm.DB, prior OwnerSnapshot) *gorm.DB {
	if prior.ClaimedByUserID == nil {
		q = q.Where("claimed_by_user_id IS NULL")
	} else {
		q = q.Where("claimed_by_user_id = ?", *prior.ClaimedByUserID)
	}
	if prior.DiscordUsername == nil {
		q = q.Where("discord_username IS NULL")
	} else {
		q = q.Where("discord_username = ?", *prior.DiscordUsername)
	}
	return q
}

// UpdateGame 应用一次槽位变更。
// 归属字段走条件更新：比较和写入在同一条UPDATE语句里完成，中间没有任何
// 可挂起点，两个并发认领恰好一个成功。其余字段后写覆盖。
// 成功时g被刷新为落库后的状态，并在同一事务内写入审计记录。
func UpdateGame(g *Game, t *tracker.Tracker, upd Update, prior *OwnerSnapshot, caller *user.User, actor audit.Actor) error {
	if err := validateUpdate(g, upd); err != nil {
		return err
	}

	// 登录用户认领时不保留自由文本用户名
	if upd.ClaimedByUserID != nil {
		upd.DiscordUsername = nil
	}

	ownershipChanged := !uintPtrEqual(upd.ClaimedByUserID, g.ClaimedByUserID) ||
		!strPtrEqual(upd.DiscordUsername, g.DiscordUsername)
	if ownershipChanged {
		if prior == nil {
			return ErrPreconditionRequired
		}
		if err := authorizeClaim(t, upd, caller); err != nil {
			return err
		}
	}

	// 手动更新后同样重算完成状态：不允许把它压到上游数据推导出的下限以下
	completion := AdvanceCompletion(upd.Completion, CompletionFromUpstream(g.UpstreamFields))

	return database.DB.Transaction(func(tx *gorm.DB) error {
		before := *g

		q := tx.Model(&Game{}).Where("id = ?", g.ID)
		if ownershipChanged {
			q = scopeOwner(q, *prior)
		}
		res := q.Updates(map[string]interface{}{
			"claimed_by_user_id": upd.ClaimedByUserID,
			"discord_username":   upd.DiscordUsername,
			"notes":              upd.Notes,
			"ping_preference":    upd.PingPreference,
			"progression":        upd.Progression,
			"availability":       upd.Availability,
			"completion":         completion,
			"last_checked_at":    upd.LastCheckedAt,
		})
		if res.Error != nil {
			return fmt.Errorf("无法更新槽位: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if ownershipChanged {
				return ErrOwnershipConflict
			}
			return fmt.Errorf("槽位 %d 不存在", g.ID)
		}

		if err := tx.First(g, g.ID).Error; err != nil {
			return fmt.Errorf("无法读回槽位: %w", err)
		}
		if _, err := audit.RecordChange(tx, audit.EntityGame, g.ID, &before, g, actor); err != nil {
			return err
		}
		return nil
	})
}
