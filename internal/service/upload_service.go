package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/pkg/logger"
	"github.com/d60-Lab/colmena/pkg/storage"
)

// UploadService 保存图片并记录上传者
type UploadService interface {
	Upload(ctx context.Context, owner, contentType string, r io.Reader) (string, error)
}

type uploadService struct {
	store   storage.ImageStore
	uploads repository.UploadRepository
}

func NewUploadService(store storage.ImageStore, uploads repository.UploadRepository) UploadService {
	return &uploadService{store: store, uploads: uploads}
}

func (s *uploadService) Upload(ctx context.Context, owner, contentType string, r io.Reader) (string, error) {
	url, err := s.store.Save(ctx, contentType, r)
	if err != nil {
		return "", err
	}
	if err := s.uploads.Create(ctx, &model.Upload{URL: url, OwnerID: owner, CreatedAt: time.Now()}); err != nil {
		// 没有归属记录的文件无法被引用，直接删掉
		if derr := s.store.Delete(ctx, url); derr != nil {
			logger.Warn("remove orphan upload failed", zap.String("url", url), zap.Error(derr))
		}
		return "", err
	}
	return url, nil
}
