package model

import "time"

// Upload 本站存储的图片及其上传者；帖子只能引用自己上传的图片
type Upload struct {
	URL       string    `gorm:"primaryKey;type:varchar(512)"`
	OwnerID   string    `gorm:"type:varchar(64);index:idx_upload_owner;not null"`
	CreatedAt time.Time
}

func (Upload) TableName() string { return "uploads" }
