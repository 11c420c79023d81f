package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/pkg/logger"
	"github.com/d60-Lab/colmena/pkg/storage"
)

const (
	titleMin       = 3
	titleMax       = 150
	bodyMax        = 5000
	displayNameMax = 60
	excerptRunes   = 160
	anonymousName  = "Anónimo"
)

// PostInput 创建/编辑帖子的字段。ImageURL 为 nil 时编辑保留原图，"" 表示去掉图片
type PostInput struct {
	Title      string
	Body       string
	ImageURL   *string
	AuthorName string
}

func (in PostInput) image(current string) string {
	if in.ImageURL == nil {
		return current
	}
	return *in.ImageURL
}

// PostView 按调用者投影的帖子
type PostView struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	AuthorName string    `json:"author_name"`
	ImageURL   string    `json:"image_url,omitempty"`
	LikeCount  int64     `json:"like_count"`
	Liked      bool      `json:"liked"`
	Saved      bool      `json:"saved"`
	IsOwner    bool      `json:"is_owner"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type PostService interface {
	// List 列表视图，正文截断
	List(ctx context.Context, viewer string, page, pageSize int) ([]*PostView, error)
	ListMine(ctx context.Context, viewer string, page, pageSize int) ([]*PostView, error)
	ListSaved(ctx context.Context, viewer string, page, pageSize int) ([]*PostView, error)
	// Get 详情视图，正文完整
	Get(ctx context.Context, id, viewer string) (*PostView, error)
	Create(ctx context.Context, owner string, in PostInput) (*PostView, error)
	Update(ctx context.Context, id, caller string, in PostInput) (*PostView, error)
	Delete(ctx context.Context, id, caller string) error
}

type postService struct {
	db           *gorm.DB
	posts        repository.PostRepository
	likes        repository.FactRepository
	saves        repository.FactRepository
	comments     repository.CommentRepository
	interactions InteractionService
	uploads      repository.UploadRepository
	images       storage.ImageStore
	cleaner      ImageRemover
}

// NewPostService images/cleaner 可为 nil：此时只接受绝对 http(s) 图片地址，且不清理旧图
func NewPostService(
	db *gorm.DB,
	posts repository.PostRepository,
	likes, saves repository.FactRepository,
	comments repository.CommentRepository,
	uploads repository.UploadRepository,
	interactions InteractionService,
	images storage.ImageStore,
	cleaner ImageRemover,
) PostService {
	return &postService{
		db:           db,
		posts:        posts,
		likes:        likes,
		saves:        saves,
		comments:     comments,
		uploads:      uploads,
		interactions: interactions,
		images:       images,
		cleaner:      cleaner,
	}
}

func (s *postService) List(ctx context.Context, viewer string, page, pageSize int) ([]*PostView, error) {
	offset, limit := pageBounds(page, pageSize)
	posts, err := s.posts.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, viewer, posts, true)
}

func (s *postService) ListMine(ctx context.Context, viewer string, page, pageSize int) ([]*PostView, error) {
	offset, limit := pageBounds(page, pageSize)
	posts, err := s.posts.ListByOwner(ctx, viewer, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, viewer, posts, true)
}

func (s *postService) ListSaved(ctx context.Context, viewer string, page, pageSize int) ([]*PostView, error) {
	posts, err := s.interactions.ListSaved(ctx, viewer, page, pageSize)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, viewer, posts, true)
}

func (s *postService) Get(ctx context.Context, id, viewer string) (*PostView, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, mapPostErr(err)
	}
	views, err := s.project(ctx, viewer, []*model.Post{post}, false)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *postService) Create(ctx context.Context, owner string, in PostInput) (*PostView, error) {
	in = normalizePostInput(in)
	if err := s.validate(ctx, owner, in, ""); err != nil {
		return nil, err
	}
	now := time.Now()
	post := &model.Post{
		ID:         uuid.New().String(),
		OwnerID:    owner,
		AuthorName: in.AuthorName,
		Title:      in.Title,
		Body:       in.Body,
		ImageURL:   in.image(""),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return toView(post, owner, nil, nil, false), nil
}

func (s *postService) Update(ctx context.Context, id, caller string, in PostInput) (*PostView, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, mapPostErr(err)
	}
	if post.OwnerID != caller {
		return nil, ErrForbidden
	}
	in = normalizePostInput(in)
	if err := s.validate(ctx, caller, in, post.ImageURL); err != nil {
		return nil, err
	}

	oldImage := post.ImageURL
	post.Title, post.Body, post.ImageURL = in.Title, in.Body, in.image(oldImage)
	post.UpdatedAt = time.Now()
	var orphan string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.posts.WithTx(tx).UpdateContent(ctx, post); err != nil {
			return err
		}
		if oldImage == "" || oldImage == post.ImageURL {
			return nil
		}
		orphan, err = s.releaseImage(ctx, tx, oldImage)
		return err
	})
	if err != nil {
		return nil, err
	}
	if orphan != "" {
		s.removeImage(orphan)
	}

	views, err := s.project(ctx, caller, []*model.Post{post}, false)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Delete 级联删除点赞、收藏、评论；图片异步尽力删除
func (s *postService) Delete(ctx context.Context, id, caller string) error {
	var image string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := s.posts.WithTx(tx)
		post, err := posts.GetForUpdate(ctx, id)
		if err != nil {
			return mapPostErr(err)
		}
		if post.OwnerID != caller {
			return ErrForbidden
		}
		image = post.ImageURL

		if err := s.likes.WithTx(tx).DeleteByPost(ctx, id); err != nil {
			return err
		}
		if err := s.saves.WithTx(tx).DeleteByPost(ctx, id); err != nil {
			return err
		}
		if err := s.comments.WithTx(tx).DeleteByPost(ctx, id); err != nil {
			return err
		}
		if err := posts.Delete(ctx, id); err != nil {
			return err
		}
		if image == "" {
			return nil
		}
		image, err = s.releaseImage(ctx, tx, image)
		return err
	})
	if err != nil {
		return err
	}
	if image != "" {
		s.removeImage(image)
	}
	return nil
}

// releaseImage 帖子不再使用 url 后调用：仍被其他帖子引用时返回 ""，
// 否则删除上传记录并返回 url 供清理
func (s *postService) releaseImage(ctx context.Context, tx *gorm.DB, url string) (string, error) {
	refs, err := s.posts.WithTx(tx).CountByImage(ctx, url)
	if err != nil {
		return "", err
	}
	if refs > 0 {
		return "", nil
	}
	if s.uploads != nil {
		if err := s.uploads.WithTx(tx).Delete(ctx, url); err != nil {
			return "", err
		}
	}
	return url, nil
}

func (s *postService) removeImage(url string) {
	if s.cleaner == nil {
		logger.Debug("no image cleaner configured, keeping image", zap.String("url", url))
		return
	}
	s.cleaner.Enqueue(url)
}

func (s *postService) project(ctx context.Context, viewer string, posts []*model.Post, excerpt bool) ([]*PostView, error) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	liked, saved, err := s.interactions.Flags(ctx, viewer, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*PostView, len(posts))
	for i, p := range posts {
		out[i] = toView(p, viewer, liked, saved, excerpt)
	}
	return out, nil
}

func toView(p *model.Post, viewer string, liked, saved map[string]bool, excerpt bool) *PostView {
	body := p.Body
	if excerpt {
		body = truncate(body, excerptRunes)
	}
	return &PostView{
		ID:         p.ID,
		Title:      p.Title,
		Body:       body,
		AuthorName: p.AuthorName,
		ImageURL:   p.ImageURL,
		LikeCount:  p.LikeCount,
		Liked:      liked[p.ID],
		Saved:      saved[p.ID],
		IsOwner:    p.OwnerID == viewer,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func normalizePostInput(in PostInput) PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if in.ImageURL != nil {
		img := strings.TrimSpace(*in.ImageURL)
		in.ImageURL = &img
	}
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	if in.AuthorName == "" {
		in.AuthorName = anonymousName
	}
	return in
}

// validate current 为帖子现有图片，保持不变时不再校验
func (s *postService) validate(ctx context.Context, caller string, in PostInput, current string) error {
	var v validation
	switch n := utf8.RuneCountInString(in.Title); {
	case n == 0:
		v.add("title", "is required")
	case n < titleMin || n > titleMax:
		v.add("title", "must be between 3 and 150 characters")
	}
	switch n := utf8.RuneCountInString(in.Body); {
	case n == 0:
		v.add("body", "is required")
	case n > bodyMax:
		v.add("body", "must be at most 5000 characters")
	}
	if utf8.RuneCountInString(in.AuthorName) > displayNameMax {
		v.add("author_name", "must be at most 60 characters")
	}
	if img := in.image(current); img != "" && img != current {
		ok, err := s.validImage(ctx, caller, img)
		if err != nil {
			return err
		}
		if !ok {
			v.add("image_url", "must be an http(s) URL or an image you uploaded")
		}
	}
	return v.err()
}

// validImage 本站图片必须是调用者自己上传的；外部图片只要求是绝对 http(s) 地址
func (s *postService) validImage(ctx context.Context, caller, raw string) (bool, error) {
	if s.images != nil && s.images.Managed(raw) {
		if s.uploads == nil {
			return false, nil
		}
		owner, err := s.uploads.OwnerOf(ctx, raw)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return owner == caller, nil
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false, nil
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != "", nil
}

// truncate 按字符截断，超出时追加省略号
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
