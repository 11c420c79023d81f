package model

import "time"

// Post 社区帖子。LikeCount 为冗余计数，只在与 Like 事实同一事务内增减
type Post struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID    string    `json:"-" gorm:"type:varchar(64);index:idx_post_owner;not null"`
	AuthorName string    `json:"author_name" gorm:"type:varchar(60);not null"`
	Title      string    `json:"title" gorm:"type:varchar(150);not null"`
	Body       string    `json:"body" gorm:"type:text;not null"`
	ImageURL   string    `json:"image_url,omitempty" gorm:"type:varchar(512)"`
	LikeCount  int64     `json:"like_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_post_created"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }
