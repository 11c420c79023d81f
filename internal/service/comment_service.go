package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
)

const commentMax = 500

type CommentView struct {
	ID          string    `json:"id"`
	PostID      string    `json:"post_id"`
	DisplayName string    `json:"display_name"`
	Body        string    `json:"body"`
	IsOwner     bool      `json:"is_owner"`
	CreatedAt   time.Time `json:"created_at"`
}

type CommentService interface {
	Add(ctx context.Context, postID, identifier, displayName, body string) (*CommentView, error)
	// ListFor 新评论在前；帖子不存在时返回空列表
	ListFor(ctx context.Context, postID, viewer string, page, pageSize int) ([]*CommentView, error)
	// Delete 只有评论者本人可以删除，帖子作者也不行
	Delete(ctx context.Context, commentID, caller string) error
}

type commentService struct {
	db       *gorm.DB
	posts    repository.PostRepository
	comments repository.CommentRepository
	fanout   Fanout
}

func NewCommentService(db *gorm.DB, posts repository.PostRepository, comments repository.CommentRepository, fanout Fanout) CommentService {
	return &commentService{db: db, posts: posts, comments: comments, fanout: fanout}
}

func (s *commentService) Add(ctx context.Context, postID, identifier, displayName, body string) (*CommentView, error) {
	body = strings.TrimSpace(body)
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = anonymousName
	}

	var v validation
	switch n := utf8.RuneCountInString(body); {
	case n == 0:
		v.add("body", "is required")
	case n > commentMax:
		v.add("body", "must be at most 500 characters")
	}
	if utf8.RuneCountInString(displayName) > displayNameMax {
		v.add("display_name", "must be at most 60 characters")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	c := &model.Comment{
		ID:          uuid.New().String(),
		PostID:      postID,
		Identifier:  identifier,
		DisplayName: displayName,
		Body:        body,
		CreatedAt:   time.Now(),
	}
	var ev *Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.posts.WithTx(tx).GetByID(ctx, postID)
		if err != nil {
			return mapPostErr(err)
		}
		if err := s.comments.WithTx(tx).Create(ctx, c); err != nil {
			return err
		}
		if shouldNotify(identifier, post.OwnerID) {
			ev = &Event{
				Kind:        model.NotificationComment,
				PostID:      post.ID,
				PostTitle:   post.Title,
				ActorID:     identifier,
				ActorName:   displayName,
				RecipientID: post.OwnerID,
			}
			return s.fanout.Stage(ctx, tx, *ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ev != nil {
		s.fanout.Deliver(ctx, *ev)
	}
	return toCommentView(c, identifier), nil
}

func (s *commentService) ListFor(ctx context.Context, postID, viewer string, page, pageSize int) ([]*CommentView, error) {
	offset, limit := pageBounds(page, pageSize)
	rows, err := s.comments.ListByPost(ctx, postID, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*CommentView, len(rows))
	for i, c := range rows {
		out[i] = toCommentView(c, viewer)
	}
	return out, nil
}

func (s *commentService) Delete(ctx context.Context, commentID, caller string) error {
	c, err := s.comments.GetByID(ctx, commentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		return err
	}
	if c.Identifier != caller {
		return ErrForbidden
	}
	return s.comments.Delete(ctx, commentID)
}

func toCommentView(c *model.Comment, viewer string) *CommentView {
	return &CommentView{
		ID:          c.ID,
		PostID:      c.PostID,
		DisplayName: c.DisplayName,
		Body:        c.Body,
		IsOwner:     c.Identifier == viewer,
		CreatedAt:   c.CreatedAt,
	}
}
