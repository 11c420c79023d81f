package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/model"
)

// UploadRepository 上传图片的归属记录
type UploadRepository interface {
	Create(ctx context.Context, u *model.Upload) error
	// OwnerOf 未记录时返回 gorm.ErrRecordNotFound
	OwnerOf(ctx context.Context, url string) (string, error)
	Delete(ctx context.Context, url string) error
	Reassign(ctx context.Context, from, to string) error
	WithTx(tx *gorm.DB) UploadRepository
}

type uploadRepository struct{ db *gorm.DB }

func NewUploadRepository(db *gorm.DB) UploadRepository { return &uploadRepository{db: db} }

func (r *uploadRepository) WithTx(tx *gorm.DB) UploadRepository { return &uploadRepository{db: tx} }

func (r *uploadRepository) Create(ctx context.Context, u *model.Upload) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *uploadRepository) OwnerOf(ctx context.Context, url string) (string, error) {
	var u model.Upload
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&u).Error; err != nil {
		return "", err
	}
	return u.OwnerID, nil
}

func (r *uploadRepository) Delete(ctx context.Context, url string) error {
	return r.db.WithContext(ctx).Where("url = ?", url).Delete(&model.Upload{}).Error
}

func (r *uploadRepository) Reassign(ctx context.Context, from, to string) error {
	return r.db.WithContext(ctx).
		Model(&model.Upload{}).
		Where("owner_id = ?", from).
		UpdateColumn("owner_id", to).Error
}
