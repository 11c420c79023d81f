package model

import "time"

type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationSave    NotificationKind = "save"
	NotificationComment NotificationKind = "comment"
)

// Notification 收件箱条目（按 recipient 切分）。只有 Read 可变
type Notification struct {
	ID            string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RecipientID   string           `json:"-" gorm:"type:varchar(64);not null;index:idx_notification_recipient"`
	Kind          NotificationKind `json:"kind" gorm:"type:varchar(16);not null"`
	Message       string           `json:"message" gorm:"type:varchar(255);not null"`
	Link          string           `json:"link" gorm:"type:varchar(255)"`
	Read          bool             `json:"read" gorm:"column:is_read;not null;default:false;index:idx_notification_recipient"`
	RelatedPostID string           `json:"related_post_id" gorm:"type:varchar(36);index"`
	CreatedAt     time.Time        `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string { return "notifications" }
