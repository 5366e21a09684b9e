package audit

import "time"

// 实体类型常量，写入AuditRecord.EntityKind
const (
	EntityTracker = "tracker"
	EntityGame    = "game"
	EntityHint    = "hint"
	EntityUser    = "user"
)

// 鉴权来源常量，记录操作者是通过会话还是API密钥通过认证的
const (
	SourceNone    = ""
	SourceSession = "session"
	SourceAPIKey  = "api_key"
)

// Record 是一条不可变的审计记录。
// 它在引发变更的同一个事务中被创建，之后永不更新或删除。
type Record struct {
	ID uint `gorm:"primarykey" json:"id"`

	// EntityKind/EntityID 标识被变更的实体
	EntityKind string `gorm:"index:idx_audit_entity;not null" json:"entityKind"`
	EntityID   uint   `gorm:"index:idx_audit_entity;not null" json:"entityId"`

	// ActorUserID 是发起变更的用户，匿名变更和系统刷新为空
	ActorUserID *uint `json:"actorUserId,omitempty"`
	// ActorIP 是发起变更的客户端IP，系统刷新为空
	ActorIP string `json:"actorIp,omitempty"`
	// AuthSource 记录认证方式（session / api_key），见Source常量
	AuthSource string `json:"authSource,omitempty"`

	// Changes 是字段级diff的JSON序列化，形如 {"field":{"old":...,"new":...}}
	Changes string `gorm:"not null" json:"changes"`

	CreatedAt time.Time `json:"createdAt"`
}

// Actor 描述一次变更的操作者元数据
type Actor struct {
	UserID *uint
	IP     string
	Source string
}

// SystemActor 是上游刷新等无人操作时使用的操作者
var SystemActor = Actor{}
