package model

import "time"

// Like 点赞事实；(post_id, identifier) 唯一
type Like struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	PostID     string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_like_post_identifier;index:idx_like_post"`
	Identifier string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_like_post_identifier;index:idx_like_identifier"`
	CreatedAt  time.Time
}

func (Like) TableName() string { return "likes" }

// Save 收藏事实，与 Like 独立
type Save struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	PostID     string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_save_post_identifier;index:idx_save_post"`
	Identifier string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_save_post_identifier;index:idx_save_identifier"`
	CreatedAt  time.Time `gorm:"index"`
}

func (Save) TableName() string { return "saves" }
