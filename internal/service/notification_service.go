package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/cache"
	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/pkg/events"
	"github.com/d60-Lab/colmena/pkg/logger"
)

// NotifyInput 一条待创建的通知
type NotifyInput struct {
	RecipientID   string
	Kind          model.NotificationKind
	Message       string
	Link          string
	RelatedPostID string
}

// Notifier 通知扇出的落地端
type Notifier interface {
	Notify(ctx context.Context, in NotifyInput) (*model.Notification, error)
}

// NotificationService 通知扇出 + 收件箱
type NotificationService interface {
	Notifier
	List(ctx context.Context, identifier string, page, pageSize int) ([]*model.Notification, error)
	CountUnread(ctx context.Context, identifier string) (int64, error)
	MarkRead(ctx context.Context, id, identifier string) error
	MarkAllRead(ctx context.Context, identifier string) (int64, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	unread    cache.UnreadCounter
	publisher events.Publisher
}

func NewNotificationService(repo repository.NotificationRepository, unread cache.UnreadCounter, publisher events.Publisher) NotificationService {
	if unread == nil {
		unread = cache.NopUnreadCounter{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &notificationService{repo: repo, unread: unread, publisher: publisher}
}

// Notify 纯创建，不去重
func (s *notificationService) Notify(ctx context.Context, in NotifyInput) (*model.Notification, error) {
	switch in.Kind {
	case model.NotificationLike, model.NotificationSave, model.NotificationComment:
	default:
		return nil, fmt.Errorf("unknown notification kind %q", in.Kind)
	}
	if in.RecipientID == "" {
		return nil, errors.New("notification recipient is empty")
	}

	n := &model.Notification{
		ID:            uuid.New().String(),
		RecipientID:   in.RecipientID,
		Kind:          in.Kind,
		Message:       in.Message,
		Link:          in.Link,
		RelatedPostID: in.RelatedPostID,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.RecipientID)

	if err := s.publisher.PublishNotification(events.NotificationCreated{
		ID:            n.ID,
		RecipientID:   n.RecipientID,
		Kind:          string(n.Kind),
		Message:       n.Message,
		Link:          n.Link,
		RelatedPostID: n.RelatedPostID,
		CreatedAt:     n.CreatedAt,
	}); err != nil {
		logger.Warn("publish notification event failed", zap.String("notification", n.ID), zap.Error(err))
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context, identifier string, page, pageSize int) ([]*model.Notification, error) {
	offset, limit := pageBounds(page, pageSize)
	return s.repo.ListByRecipient(ctx, identifier, offset, limit)
}

func (s *notificationService) CountUnread(ctx context.Context, identifier string) (int64, error) {
	n, ok, err := s.unread.Get(ctx, identifier)
	if err != nil {
		logger.Warn("unread cache read failed, using database", zap.String("identifier", identifier), zap.Error(err))
	} else if ok {
		return n, nil
	}

	n, err = s.repo.CountUnread(ctx, identifier)
	if err != nil {
		return 0, err
	}
	if err := s.unread.Set(ctx, identifier, n); err != nil {
		logger.Warn("unread cache write failed", zap.String("identifier", identifier), zap.Error(err))
	}
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, identifier string) error {
	n, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return err
	}
	if n.RecipientID != identifier {
		return ErrForbidden
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, identifier)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, identifier string) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, identifier)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, identifier)
	return affected, nil
}

func (s *notificationService) invalidate(ctx context.Context, identifier string) {
	if err := s.unread.Invalidate(ctx, identifier); err != nil {
		logger.Warn("unread cache invalidate failed", zap.String("identifier", identifier), zap.Error(err))
	}
}
