package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/colmena/internal/model"
)

// PostRepository 帖子仓储接口
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error

	// GetByID 不存在时返回 gorm.ErrRecordNotFound
	GetByID(ctx context.Context, id string) (*model.Post, error)

	// GetForUpdate 在事务内锁定帖子行（postgres 下 FOR UPDATE）
	GetForUpdate(ctx context.Context, id string) (*model.Post, error)

	// GetByIDs 保持 ids 的顺序，缺失的跳过
	GetByIDs(ctx context.Context, ids []string) ([]*model.Post, error)

	// List 按创建时间倒序
	List(ctx context.Context, offset, limit int) ([]*model.Post, error)

	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*model.Post, error)

	// UpdateContent 只更新标题、正文、图片
	UpdateContent(ctx context.Context, post *model.Post) error

	Delete(ctx context.Context, id string) error

	// AdjustLikeCount 原子增减，下限为 0
	AdjustLikeCount(ctx context.Context, id string, delta int) error

	// RecountLikes 按 likes 事实重算计数
	RecountLikes(ctx context.Context, ids []string) error

	ReassignOwner(ctx context.Context, from, to string) error

	// CountByImage 引用该图片地址的帖子数
	CountByImage(ctx context.Context, url string) (int64, error)

	WithTx(tx *gorm.DB) PostRepository
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository { return &postRepository{db: tx} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetForUpdate(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Post, error) {
	if len(ids) == 0 {
		return []*model.Post{}, nil
	}
	var rows []*model.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Post, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	out := make([]*model.Post, 0, len(rows))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *postRepository) List(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) UpdateContent(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"title":      post.Title,
			"body":       post.Body,
			"image_url":  post.ImageURL,
			"updated_at": post.UpdatedAt,
		}).Error
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{}).Error
}

func (r *postRepository) AdjustLikeCount(ctx context.Context, id string, delta int) error {
	// 单条 UPDATE 表达式，避免读-改-写丢失更新
	expr := gorm.Expr("like_count + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN like_count + ? < 0 THEN 0 ELSE like_count + ? END", delta, delta)
	}
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		UpdateColumn("like_count", expr).Error
}

func (r *postRepository) RecountLikes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id IN ?", ids).
		UpdateColumn("like_count", gorm.Expr("(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id)")).Error
}

func (r *postRepository) ReassignOwner(ctx context.Context, from, to string) error {
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("owner_id = ?", from).
		UpdateColumn("owner_id", to).Error
}

func (r *postRepository) CountByImage(ctx context.Context, url string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Where("image_url = ?", url).Count(&cnt).Error
	return cnt, err
}
