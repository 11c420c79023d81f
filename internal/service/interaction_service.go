package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
)

type ToggleLikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

type ToggleSaveResult struct {
	Saved bool `json:"saved"`
}

// InteractionService 点赞/收藏事实账本
type InteractionService interface {
	HasLiked(ctx context.Context, postID, identifier string) (bool, error)
	HasSaved(ctx context.Context, postID, identifier string) (bool, error)
	// Flags 批量返回 identifier 对 postIDs 的点赞/收藏状态
	Flags(ctx context.Context, identifier string, postIDs []string) (liked, saved map[string]bool, err error)
	ToggleLike(ctx context.Context, postID, identifier string) (*ToggleLikeResult, error)
	ToggleSave(ctx context.Context, postID, identifier string) (*ToggleSaveResult, error)
	// ListSaved 按收藏时间倒序
	ListSaved(ctx context.Context, identifier string, page, pageSize int) ([]*model.Post, error)
}

type interactionService struct {
	db     *gorm.DB
	posts  repository.PostRepository
	likes  repository.FactRepository
	saves  repository.FactRepository
	fanout Fanout
}

func NewInteractionService(db *gorm.DB, posts repository.PostRepository, likes, saves repository.FactRepository, fanout Fanout) InteractionService {
	return &interactionService{db: db, posts: posts, likes: likes, saves: saves, fanout: fanout}
}

func (s *interactionService) HasLiked(ctx context.Context, postID, identifier string) (bool, error) {
	return s.likes.Exists(ctx, postID, identifier)
}

func (s *interactionService) HasSaved(ctx context.Context, postID, identifier string) (bool, error) {
	return s.saves.Exists(ctx, postID, identifier)
}

func (s *interactionService) Flags(ctx context.Context, identifier string, postIDs []string) (map[string]bool, map[string]bool, error) {
	liked, err := s.likes.ExistingPostIDs(ctx, identifier, postIDs)
	if err != nil {
		return nil, nil, err
	}
	saved, err := s.saves.ExistingPostIDs(ctx, identifier, postIDs)
	if err != nil {
		return nil, nil, err
	}
	return liked, saved, nil
}

// ToggleLike 事实增删与 like_count 增减在同一事务内完成
func (s *interactionService) ToggleLike(ctx context.Context, postID, identifier string) (*ToggleLikeResult, error) {
	var (
		res ToggleLikeResult
		ev  *Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts, likes := s.posts.WithTx(tx), s.likes.WithTx(tx)

		post, err := posts.GetForUpdate(ctx, postID)
		if err != nil {
			return mapPostErr(err)
		}

		removed, err := likes.Delete(ctx, postID, identifier)
		if err != nil {
			return err
		}
		if removed {
			if err := posts.AdjustLikeCount(ctx, postID, -1); err != nil {
				return err
			}
		} else {
			created, err := likes.Create(ctx, postID, identifier)
			if err != nil {
				return err
			}
			// created=false：并发请求已插入同一事实，结果同样是“已赞”
			if created {
				if err := posts.AdjustLikeCount(ctx, postID, 1); err != nil {
					return err
				}
				if shouldNotify(identifier, post.OwnerID) {
					ev = &Event{Kind: model.NotificationLike, PostID: post.ID, PostTitle: post.Title, ActorID: identifier, RecipientID: post.OwnerID}
					if err := s.fanout.Stage(ctx, tx, *ev); err != nil {
						return err
					}
				}
			}
		}
		res.Liked = !removed

		fresh, err := posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		res.LikeCount = fresh.LikeCount
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ev != nil {
		s.fanout.Deliver(ctx, *ev)
	}
	return &res, nil
}

func (s *interactionService) ToggleSave(ctx context.Context, postID, identifier string) (*ToggleSaveResult, error) {
	var (
		res ToggleSaveResult
		ev  *Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		saves := s.saves.WithTx(tx)

		post, err := s.posts.WithTx(tx).GetForUpdate(ctx, postID)
		if err != nil {
			return mapPostErr(err)
		}

		removed, err := saves.Delete(ctx, postID, identifier)
		if err != nil {
			return err
		}
		if !removed {
			created, err := saves.Create(ctx, postID, identifier)
			if err != nil {
				return err
			}
			if created && shouldNotify(identifier, post.OwnerID) {
				ev = &Event{Kind: model.NotificationSave, PostID: post.ID, PostTitle: post.Title, ActorID: identifier, RecipientID: post.OwnerID}
				if err := s.fanout.Stage(ctx, tx, *ev); err != nil {
					return err
				}
			}
		}
		res.Saved = !removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ev != nil {
		s.fanout.Deliver(ctx, *ev)
	}
	return &res, nil
}

func (s *interactionService) ListSaved(ctx context.Context, identifier string, page, pageSize int) ([]*model.Post, error) {
	offset, limit := pageBounds(page, pageSize)
	ids, err := s.saves.ListPostIDs(ctx, identifier, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.posts.GetByIDs(ctx, ids)
}

func mapPostErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	return err
}
