package model

import "time"

type Comment struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID      string    `json:"post_id" gorm:"type:varchar(36);not null;index:idx_comment_post"`
	Identifier  string    `json:"-" gorm:"type:varchar(64);not null;index"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(60);not null"`
	Body        string    `json:"body" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"index:idx_comment_post"`
}

func (Comment) TableName() string { return "comments" }
