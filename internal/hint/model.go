package hint

import "time"

// Classification 是玩家对一条提示重要性的标注。
// 它是纯用户字段，任何一次刷新都必须原样保留。
type Classification string

const (
	ClassificationUnknown     Classification = "unknown"
	ClassificationCritical    Classification = "critical"
	ClassificationProgression Classification = "progression"
	ClassificationQOL         Classification = "qol"
	ClassificationTrash       Classification = "trash"
)

// ValidClassification 校验重要性标注的取值
func ValidClassification(c Classification) bool {
	switch c {
	case ClassificationUnknown, ClassificationCritical, ClassificationProgression,
		ClassificationQOL, ClassificationTrash:
		return true
	}
	return false
}

// Hint 是一条提示的持久化模型：某个物品位于finder槽位的某个位置，
// 将被receiver槽位收到。上游不提供稳定的提示ID，刷新时按自然键匹配。
type Hint struct {
	ID uint `gorm:"primarykey" json:"id"`
	// TrackerID 冗余存储finder所在的房间，方便按房间整批读写
	TrackerID    uint `gorm:"index;not null" json:"-"`
	FinderGameID uint `gorm:"index;not null" json:"finderGameId"`
	// ReceiverGameID 为空表示接收方是一个物品链接组而不是具体槽位
	ReceiverGameID *uint `json:"receiverGameId"`
	// ItemLinkName 是物品链接组的展示名，仅在ReceiverGameID为空时有意义
	ItemLinkName string `json:"itemLinkName"`

	Item     string `gorm:"not null" json:"item"`
	Location string `gorm:"not null" json:"location"`
	Entrance string `json:"entrance"`

	// Found 由上游推导，刷新时是匹配行上唯一会更新的字段
	Found bool `json:"found"`
	// Classification 由玩家标注，刷新永不覆盖
	Classification Classification `gorm:"not null;default:unknown" json:"classification"`

	CreatedAt time.Time `json:"-" audit:"-"`
	UpdatedAt time.Time `json:"-" audit:"-"`
}

// NaturalKey 是刷新时匹配上游提示用的自然键。
// 同键提示可能重复出现，匹配按多重集进行。
type NaturalKey struct {
	FinderGameID   uint
	ReceiverGameID uint // 0表示物品链接
	ItemLinkName   string
	Item           string
	Location       string
	Entrance       string
}

// Key 返回这条提示的自然键
func (h *Hint) Key() NaturalKey {
	k := NaturalKey{
		FinderGameID: h.FinderGameID,
		ItemLinkName: h.ItemLinkName,
		Item:         h.Item,
		Location:     h.Location,
		Entrance:     h.Entrance,
	}
	if h.ReceiverGameID != nil {
		k.ReceiverGameID = *h.ReceiverGameID
	}
	return k
}
