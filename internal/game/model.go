package game

import (
	"time"

	"github.com/SlpAus/multiworld-tracker-backend/internal/tracker"
	"github.com/SlpAus/multiworld-tracker-backend/internal/upstream"
	"github.com/SlpAus/multiworld-tracker-backend/internal/user"
)

// CompletionStatus 表示一个槽位的通关进度。
// 该状态是单调的：自动重算只会让它前进，手动也不允许回退，
// 唯一例外是终态released，它可以从任何状态直接设置。
type CompletionStatus string

const (
	CompletionIncomplete CompletionStatus = "incomplete"
	CompletionAllChecks  CompletionStatus = "all_checks"
	CompletionGoal       CompletionStatus = "goal"
	CompletionDone       CompletionStatus = "done"
	CompletionReleased   CompletionStatus = "released"
)

// Rank 给出单调序：incomplete < {all_checks, goal} < done < released
func (s CompletionStatus) Rank() int {
	switch s {
	case CompletionAllChecks, CompletionGoal:
		return 1
	case CompletionDone:
		return 2
	case CompletionReleased:
		return 3
	default:
		return 0
	}
}

// ValidCompletionStatus 校验完成状态的取值
func ValidCompletionStatus(s CompletionStatus) bool {
	switch s {
	case CompletionIncomplete, CompletionAllChecks, CompletionGoal,
		CompletionDone, CompletionReleased:
		return true
	}
	return false
}

// Availability 表示槽位的认领可用性，由玩家自行标注
type Availability string

const (
	AvailabilityUnknown Availability = "unknown"
	AvailabilityOpen    Availability = "open"
	AvailabilityClaimed Availability = "claimed"
	AvailabilityPublic  Availability = "public"
)

// ValidAvailability 校验可用性的取值
func ValidAvailability(a Availability) bool {
	switch a {
	case AvailabilityUnknown, AvailabilityOpen, AvailabilityClaimed, AvailabilityPublic:
		return true
	}
	return false
}

// Progression 表示槽位当前的推进状态，由玩家自行标注
type Progression string

const (
	ProgressionUnknown   Progression = "unknown"
	ProgressionUnblocked Progression = "unblocked"
	ProgressionBK        Progression = "bk"
	ProgressionGo        Progression = "go"
	ProgressionSoftBK    Progression = "soft_bk"
)

// ValidProgression 校验推进状态的取值
func ValidProgression(p Progression) bool {
	switch p {
	case ProgressionUnknown, ProgressionUnblocked, ProgressionBK,
		ProgressionGo, ProgressionSoftBK:
		return true
	}
	return false
}

// UpstreamFields 是Game中由上游独占的字段组。
// 每次成功刷新都会整组覆盖这些字段，同步路径只允许构造和写入这一半。
type UpstreamFields struct {
	// Name 是槽位名，可能因别名而变化，但在房间内保持唯一
	Name string `gorm:"uniqueIndex:idx_games_tracker_name,priority:2;not null" json:"name"`
	// GameTitle 是该槽位所玩的游戏名
	GameTitle string `json:"game"`
	// TrackerStatus 是上游报告的连接状态
	TrackerStatus upstream.SlotStatus `json:"trackerStatus"`
	ChecksDone    int                 `json:"checksDone"`
	ChecksTotal   int                 `json:"checksTotal"`
	// LastActivityAt 是该槽位最后一次活动的时间，无记录时为空
	LastActivityAt *time.Time `json:"lastActivityAt"`
}

// UserFields 是Game中由用户独占的字段组，刷新永远不会触碰它们
type UserFields struct {
	// ClaimedByUserID / DiscordUsername 是归属字段，二者互斥：
	// 登录用户认领时记录用户ID并清空自由文本用户名
	ClaimedByUserID *uint   `json:"claimedByUserId"`
	DiscordUsername *string `json:"discordUsername"`

	Notes          string                 `json:"notes"`
	PingPreference tracker.PingPreference `gorm:"not null;default:never" json:"pingPreference"`
	Progression    Progression            `gorm:"not null;default:unknown" json:"progressionStatus"`
	Availability   Availability           `gorm:"not null;default:unknown" json:"availabilityStatus"`
	// Completion 虽然会被刷新自动推进，但只增不减，手动编辑也受同一约束，
	// 因此归入用户组：刷新对它做的是重算取更大值，不是覆盖
	Completion CompletionStatus `gorm:"not null;default:incomplete" json:"completionStatus"`

	// LastCheckedAt 是玩家自述的最近查看时间
	LastCheckedAt *time.Time `json:"lastCheckedAt"`
}

// Game 是一个槽位的持久化模型，按(tracker, position)和(tracker, name)唯一
type Game struct {
	ID        uint `gorm:"primarykey" json:"id"`
	TrackerID uint `gorm:"uniqueIndex:idx_games_tracker_position,priority:1;uniqueIndex:idx_games_tracker_name,priority:1;not null" json:"-"`
	// Position 是槽位在房间内的序号，跨刷新稳定，是匹配上游数据的身份键
	Position int `gorm:"uniqueIndex:idx_games_tracker_position,priority:2;not null" json:"position"`

	UpstreamFields `gorm:"embedded"`
	UserFields     `gorm:"embedded"`

	CreatedAt time.Time `json:"-" audit:"-"`
	UpdatedAt time.Time `json:"-" audit:"-"`
}

// CompletionFromUpstream 根据上游字段推导完成状态的下限
func CompletionFromUpstream(f UpstreamFields) CompletionStatus {
	allChecks := f.ChecksDone == f.ChecksTotal && f.ChecksTotal > 0
	goal := f.TrackerStatus == upstream.SlotStatusGoalCompleted
	switch {
	case allChecks && goal:
		return CompletionDone
	case allChecks:
		return CompletionAllChecks
	case goal:
		return CompletionGoal
	default:
		return CompletionIncomplete
	}
}

// AdvanceCompletion 单调合并完成状态：只有candidate更完整时才采用，
// released是终态，之后不再变化
func AdvanceCompletion(current, candidate CompletionStatus) CompletionStatus {
	if current == CompletionReleased {
		return current
	}
	if candidate.Rank() > current.Rank() {
		return candidate
	}
	return current
}

// EffectiveOwnerName 在读取时计算槽位的展示归属名：
// 被登录用户认领时显示其Discord用户名，否则显示自由文本用户名
func EffectiveOwnerName(g *Game, owner *user.User) string {
	if g.ClaimedByUserID != nil && owner != nil {
		return owner.DiscordUsername
	}
	if g.DiscordUsername != nil {
		return *g.DiscordUsername
	}
	return ""
}
