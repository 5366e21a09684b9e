package user

import "time"

// User 定义了用户在SQLite数据库中的持久化模型。
// 用户只能通过Discord OAuth登录产生，本服务不保存任何口令。
type User struct {
	ID uint `gorm:"primarykey" json:"id"`

	// DiscordUserID 是Discord侧的用户雪花ID
	DiscordUserID int64 `gorm:"uniqueIndex;not null" json:"-"`
	// DiscordUsername 是登录时记录的Discord用户名，随登录刷新
	DiscordUsername string `gorm:"not null" json:"discordUsername"`

	// APIKey 是可选的API密钥，用于脚本化访问；为空表示未签发
	APIKey *string `gorm:"uniqueIndex" json:"-" audit:"-"`

	// IsAway 标记用户暂时离开，仅用于展示
	IsAway bool `json:"isAway"`

	CreatedAt time.Time `json:"-" audit:"-"`
	UpdatedAt time.Time `json:"-" audit:"-"`
}
