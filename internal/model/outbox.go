package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
	OutboxFailed     = "failed"
)

// Outbox 通知意图，与触发它的点赞/收藏/评论写在同一事务
type Outbox struct {
	ID          string           `gorm:"primaryKey;type:varchar(36)"`
	Kind        NotificationKind `gorm:"type:varchar(16);not null"`
	PostID      string           `gorm:"type:varchar(36);index"`
	PostTitle   string           `gorm:"type:varchar(150)"`
	ActorID     string           `gorm:"type:varchar(64)"`
	ActorName   string           `gorm:"type:varchar(60)"`
	RecipientID string           `gorm:"type:varchar(64);index:idx_outbox_recipient"`
	CreatedAt   time.Time        `gorm:"index"`
	Status      string           `gorm:"type:varchar(16);index"` // pending, processing, done, failed
	Attempts    int
	ClaimedAt   *time.Time `gorm:"index"`
	ProcessedAt *time.Time
}

func (Outbox) TableName() string { return "outbox" }
