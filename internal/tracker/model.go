package tracker

import (
	"net/url"
	"strings"
	"time"
)

// PingPreference 表示一个槽位（或整个房间）希望被@提醒的程度
type PingPreference string

const (
	PingLiberally PingPreference = "liberally"
	PingSparingly PingPreference = "sparingly"
	PingHints     PingPreference = "hints"
	PingSeeNotes  PingPreference = "see_notes"
	PingNever     PingPreference = "never"
)

// ValidPingPreference 校验提醒偏好的取值
func ValidPingPreference(p PingPreference) bool {
	switch p {
	case PingLiberally, PingSparingly, PingHints, PingSeeNotes, PingNever:
		return true
	}
	return false
}

// Tracker 是一个多世界房间在本服务中的聚合状态。
// 首次有人引用某个上游URL时创建，正常运行中永不删除。
// LastFetchedAt 单独维护而不复用GORM的UpdatedAt：
// 保存设置不应该推迟下一次上游刷新的窗口。
type Tracker struct {
	ID uint `gorm:"primarykey" json:"-"`
	// PublicID 是对外暴露的标识，避免泄露自增主键
	PublicID    string `gorm:"uniqueIndex;not null" json:"id" audit:"-"`
	UpstreamURL string `gorm:"uniqueIndex;not null" json:"upstreamUrl" audit:"-"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// OwnerUserID 是认领了整个房间的用户，可以为空
	OwnerUserID *uint `json:"ownerUserId"`
	// LockSettings 为true时只有房主能修改设置
	LockSettings bool `json:"lockSettings"`
	// RequireAuthToClaim 只在设置锁定时有意义
	RequireAuthToClaim bool `json:"requireAuthenticationToClaim"`

	GlobalPingPolicy *PingPreference `json:"globalPingPolicy"`

	// RoomLink 是房间页面的链接，用于查询端口号
	RoomLink string `json:"roomLink"`
	// LastPort 是房间最近一次使用的端口，由后台查询维护，不进审计
	LastPort *int `json:"lastPort" audit:"-"`
	// NextPortCheckAt 之前不会再查询端口
	NextPortCheckAt *time.Time `json:"-" audit:"-"`

	// 不活跃着色阈值（小时），仅供前端展示使用
	InactivityYellowHours int `json:"inactivityYellowHours"`
	InactivityRedHours    int `json:"inactivityRedHours"`

	// LastFetchedAt 是最近一次成功上游抓取的开始时间，作为刷新间隔的闸门
	LastFetchedAt *time.Time `json:"lastFetchedAt" audit:"-"`

	CreatedAt time.Time `json:"createdAt" audit:"-"`
	UpdatedAt time.Time `json:"-" audit:"-"`
}

// Room 返回房间状态API的基址和房间标识。
// 房间链接形如 {scheme}://{host}/room/{id}，与上游URL同源。
func (t *Tracker) Room() (baseURL string, roomID string, ok bool) {
	if t.RoomLink == "" {
		return "", "", false
	}
	u, err := url.Parse(t.RoomLink)
	if err != nil {
		return "", "", false
	}
	id, found := strings.CutPrefix(u.Path, "/room/")
	if !found || id == "" || strings.Contains(id, "/") {
		return "", "", false
	}
	return u.Scheme + "://" + u.Host, id, true
}

// ValidRoomLink 校验房间链接：必须与上游URL同源，路径为 /room/{id}
func ValidRoomLink(upstreamURL, roomLink string) bool {
	room, err := url.Parse(roomLink)
	if err != nil {
		return false
	}
	up, err := url.Parse(upstreamURL)
	if err != nil {
		return false
	}
	if room.Scheme != up.Scheme || room.Host != up.Host {
		return false
	}
	id, found := strings.CutPrefix(room.Path, "/room/")
	return found && id != "" && !strings.Contains(id, "/")
}
