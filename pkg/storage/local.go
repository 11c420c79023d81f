// Package storage 图片存储协作者：本地磁盘实现
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrNotManaged      = errors.New("image is not managed by this store")
)

// 允许的图片类型 -> 扩展名
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore 保存/删除帖子图片
type ImageStore interface {
	Save(ctx context.Context, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
	// Managed 判断 url 是否由本存储产生
	Managed(url string) bool
}

// LocalStore 写入 dir，对外以 prefix/<file> 暴露
type LocalStore struct {
	dir    string
	prefix string
}

func NewLocalStore(dir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, prefix: strings.TrimRight(prefix, "/")}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(ctx context.Context, contentType string, r io.Reader) (string, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return s.prefix + "/" + name, nil
}

func (s *LocalStore) Managed(url string) bool {
	return url != "" && strings.HasPrefix(url, s.prefix+"/")
}

func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if !s.Managed(url) {
		return ErrNotManaged
	}
	name := path.Base(strings.TrimPrefix(url, s.prefix+"/"))
	if name == "." || name == "/" || name == "" {
		return ErrNotManaged
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
