package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/colmena/internal/model"
)

// FactRepository 用户→帖子的点赞/收藏事实
type FactRepository interface {
	// Create 幂等插入；返回是否真正新建
	Create(ctx context.Context, postID, identifier string) (bool, error)
	// Delete 返回是否真正删除
	Delete(ctx context.Context, postID, identifier string) (bool, error)
	Exists(ctx context.Context, postID, identifier string) (bool, error)
	// ExistingPostIDs 批量判定 identifier 在 postIDs 中对哪些存在事实
	ExistingPostIDs(ctx context.Context, identifier string, postIDs []string) (map[string]bool, error)
	// ListPostIDs 按事实时间倒序
	ListPostIDs(ctx context.Context, identifier string, offset, limit int) ([]string, error)
	Count(ctx context.Context, postID string) (int64, error)
	DeleteByPost(ctx context.Context, postID string) error
	// Reassign 把 from 的事实转给 to，重复的 (post, to) 只保留一条；返回涉及的 post
	Reassign(ctx context.Context, from, to string) ([]string, error)
	WithTx(tx *gorm.DB) FactRepository
}

type factRepository struct {
	db    *gorm.DB
	table string
	zero  func() interface{}
	row   func(postID, identifier string, at time.Time) interface{}
}

func NewLikeRepository(db *gorm.DB) FactRepository {
	return &factRepository{
		db:    db,
		table: model.Like{}.TableName(),
		zero:  func() interface{} { return &model.Like{} },
		row: func(postID, identifier string, at time.Time) interface{} {
			return &model.Like{ID: uuid.New().String(), PostID: postID, Identifier: identifier, CreatedAt: at}
		},
	}
}

func NewSaveRepository(db *gorm.DB) FactRepository {
	return &factRepository{
		db:    db,
		table: model.Save{}.TableName(),
		zero:  func() interface{} { return &model.Save{} },
		row: func(postID, identifier string, at time.Time) interface{} {
			return &model.Save{ID: uuid.New().String(), PostID: postID, Identifier: identifier, CreatedAt: at}
		},
	}
}

func (r *factRepository) WithTx(tx *gorm.DB) FactRepository {
	cp := *r
	cp.db = tx
	return &cp
}

func (r *factRepository) Create(ctx context.Context, postID, identifier string) (bool, error) {
	// 并发重复插入由唯一索引吸收
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(r.row(postID, identifier, time.Now()))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *factRepository) Delete(ctx context.Context, postID, identifier string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND identifier = ?", postID, identifier).
		Delete(r.zero())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *factRepository) Exists(ctx context.Context, postID, identifier string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(r.zero()).
		Where("post_id = ? AND identifier = ?", postID, identifier).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *factRepository) ExistingPostIDs(ctx context.Context, identifier string, postIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(r.zero()).
		Where("identifier = ? AND post_id IN ?", identifier, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *factRepository) ListPostIDs(ctx context.Context, identifier string, offset, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(r.zero()).
		Where("identifier = ?", identifier).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *factRepository) Count(ctx context.Context, postID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(r.zero()).Where("post_id = ?", postID).Count(&cnt).Error
	return cnt, err
}

func (r *factRepository) DeleteByPost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(r.zero()).Error
}

func (r *factRepository) Reassign(ctx context.Context, from, to string) ([]string, error) {
	db := r.db.WithContext(ctx)
	var postIDs []string
	if err := db.Model(r.zero()).Where("identifier = ?", from).Pluck("post_id", &postIDs).Error; err != nil {
		return nil, err
	}
	if len(postIDs) == 0 {
		return nil, nil
	}
	dup := db.Model(r.zero()).Select("post_id").Where("identifier = ?", to)
	if err := db.Where("identifier = ? AND post_id IN (?)", from, dup).Delete(r.zero()).Error; err != nil {
		return nil, err
	}
	if err := db.Model(r.zero()).Where("identifier = ?", from).Update("identifier", to).Error; err != nil {
		return nil, err
	}
	return postIDs, nil
}
