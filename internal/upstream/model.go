package upstream

import "time"

// 本包负责与上游房间追踪页面的全部交互：抓取HTML、解析表格、
// 查询房间状态API。解析结果是纯数据，落库由refresh模块完成。

// SlotStatus 是上游页面报告的槽位连接状态
type SlotStatus string

const (
	SlotStatusDisconnected  SlotStatus = "disconnected"
	SlotStatusConnected     SlotStatus = "connected"
	SlotStatusReady         SlotStatus = "ready"
	SlotStatusPlaying       SlotStatus = "playing"
	SlotStatusGoalCompleted SlotStatus = "goal_completed"
)

// SlotRecord 是从上游checks表解析出的一行槽位数据
type SlotRecord struct {
	// Position 是槽位在房间内的序号，跨刷新稳定，作为匹配键
	Position int
	// Name 是槽位名，可能因别名而变化
	Name string
	// Game 是该槽位所玩的游戏名
	Game string
	// Status 是上游报告的连接状态
	Status SlotStatus
	// ChecksDone/ChecksTotal 是已完成和总计的检查数
	ChecksDone  int
	ChecksTotal int
	// LastActivity 是距离该槽位最后一次活动的时长。
	// 上游以秒为单位提供，且其数据快照有分钟级的漂移，为nil表示无活动记录。
	LastActivity *time.Duration
}

// HintRecord 是从上游hints表解析出的一行提示数据
type HintRecord struct {
	// Finder 是持有物品的槽位名
	Finder string
	// Receiver 是将收到物品的槽位名。
	// 当它不是房间内任何槽位时，这条提示指向一个物品链接组。
	Receiver string
	Item     string
	Location string
	// Entrance 在未开启入口随机时为"Vanilla"
	Entrance string
	// Found 表示该检查是否已被送出
	Found bool
}

// RoomSnapshot 是一次成功抓取得到的上游房间完整快照
type RoomSnapshot struct {
	Slots     []SlotRecord
	Hints     []HintRecord
	FetchedAt time.Time
}

// RoomStatus 是房间状态API返回的数据
type RoomStatus struct {
	// LastActivity 是房间最后一次活动的时间
	LastActivity time.Time
	// LastPort 是房间最近一次使用的端口
	LastPort int
	// TimeoutSec 是房间的超时时长（秒）
	TimeoutSec int
}
