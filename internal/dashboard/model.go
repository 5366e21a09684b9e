package dashboard

import "time"

// Visibility 是用户对单个房间的仪表盘可见性覆盖
type Visibility string

const (
	VisibilityShow Visibility = "show"
	VisibilityHide Visibility = "hide"
)

// ValidVisibility 校验可见性取值
func ValidVisibility(v Visibility) bool {
	return v == VisibilityShow || v == VisibilityHide
}

// Override 记录一个用户对一个房间的可见性覆盖。
// 没有覆盖时，仪表盘默认显示用户拥有或认领过槽位的房间。
type Override struct {
	UserID     uint       `gorm:"primarykey" json:"-"`
	TrackerID  uint       `gorm:"primarykey" json:"-"`
	Visibility Visibility `gorm:"not null" json:"visibility"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
