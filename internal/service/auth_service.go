package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/cache"
	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/pkg/auth"
	"github.com/d60-Lab/colmena/pkg/logger"
)

const passwordMin = 8

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult 登录/注册成功后的令牌
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
	// Merged 本次是否把匿名身份的数据并入了账号
	Merged bool `json:"merged"`
}

type AuthService interface {
	// Register 创建账号；anonID 非空时并入匿名数据
	Register(ctx context.Context, in RegisterInput, anonID string) (*AuthResult, error)
	Login(ctx context.Context, email, password, anonID string) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	// Merge 把 from 名下的帖子、事实、评论、通知、上传图片转给 to，整体在一个事务内
	Merge(ctx context.Context, from, to string) error
}

type authService struct {
	db            *gorm.DB
	users         repository.UserRepository
	posts         repository.PostRepository
	likes         repository.FactRepository
	saves         repository.FactRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	uploads       repository.UploadRepository
	unread        cache.UnreadCounter
	tokens        *auth.TokenManager
	cost          int
}

func NewAuthService(
	db *gorm.DB,
	users repository.UserRepository,
	posts repository.PostRepository,
	likes, saves repository.FactRepository,
	comments repository.CommentRepository,
	notifications repository.NotificationRepository,
	uploads repository.UploadRepository,
	unread cache.UnreadCounter,
	tokens *auth.TokenManager,
) AuthService {
	if unread == nil {
		unread = cache.NopUnreadCounter{}
	}
	return &authService{
		db:            db,
		users:         users,
		posts:         posts,
		likes:         likes,
		saves:         saves,
		comments:      comments,
		notifications: notifications,
		uploads:       uploads,
		unread:        unread,
		tokens:        tokens,
		cost:          bcrypt.DefaultCost,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput, anonID string) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	var v validation
	if n := utf8.RuneCountInString(in.Username); n < 3 || n > displayNameMax {
		v.add("username", "must be between 3 and 60 characters")
	}
	if !strings.Contains(in.Email, "@") {
		v.add("email", "must be a valid email")
	}
	if utf8.RuneCountInString(in.Password) < passwordMin {
		v.add("password", "must be at least 8 characters")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(ctx, u, anonID)
}

func (s *authService) Login(ctx context.Context, email, password, anonID string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u, anonID)
}

func (s *authService) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *authService) issue(ctx context.Context, u *model.User, anonID string) (*AuthResult, error) {
	res := &AuthResult{User: u}
	if anonID != "" && anonID != u.ID {
		if err := s.Merge(ctx, anonID, u.ID); err != nil {
			return nil, err
		}
		res.Merged = true
	}
	token, exp, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	res.Token, res.ExpiresAt = token, exp
	return res, nil
}

func (s *authService) Merge(ctx context.Context, from, to string) error {
	if from == "" || from == to {
		return nil
	}
	var moved int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := s.posts.WithTx(tx)
		if err := posts.ReassignOwner(ctx, from, to); err != nil {
			return err
		}
		liked, err := s.likes.WithTx(tx).Reassign(ctx, from, to)
		if err != nil {
			return err
		}
		saved, err := s.saves.WithTx(tx).Reassign(ctx, from, to)
		if err != nil {
			return err
		}
		if err := s.comments.WithTx(tx).Reassign(ctx, from, to); err != nil {
			return err
		}
		if err := s.notifications.WithTx(tx).Reassign(ctx, from, to); err != nil {
			return err
		}
		if err := s.uploads.WithTx(tx).Reassign(ctx, from, to); err != nil {
			return err
		}
		moved = len(liked) + len(saved)
		// 去重后点赞数可能减少，按事实重算
		return posts.RecountLikes(ctx, liked)
	})
	if err != nil {
		return err
	}
	// 通知换了收件人，两边的未读数缓存都失效
	if err := s.unread.Invalidate(ctx, from, to); err != nil {
		logger.Warn("invalidate unread cache after merge failed", zap.String("to", to), zap.Error(err))
	}
	logger.Info("anonymous identity merged",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("facts", moved))
	return nil
}
