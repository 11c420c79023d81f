package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/cache"
	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/internal/testutil"
	"github.com/d60-Lab/colmena/pkg/auth"
	"github.com/d60-Lab/colmena/pkg/storage"
)

type harness struct {
	db            *gorm.DB
	postRepo      repository.PostRepository
	likes         repository.FactRepository
	saves         repository.FactRepository
	commentRepo   repository.CommentRepository
	notifRepo     repository.NotificationRepository
	outbox        repository.OutboxRepository
	users         repository.UserRepository
	uploadRepo    repository.UploadRepository
	store         *storage.LocalStore
	uploads       UploadService
	notifications NotificationService
	interactions  InteractionService
	posts         PostService
	comments      CommentService
	auth          AuthService
	cleaner       *recordingRemover
}

// newHarness fanout 为 nil 时使用 DirectFanout
func newHarness(t *testing.T, fanout func(h *harness) Fanout) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	h := &harness{
		db:          db,
		postRepo:    repository.NewPostRepository(db),
		likes:       repository.NewLikeRepository(db),
		saves:       repository.NewSaveRepository(db),
		commentRepo: repository.NewCommentRepository(db),
		notifRepo:   repository.NewNotificationRepository(db),
		outbox:      repository.NewOutboxRepository(db),
		users:       repository.NewUserRepository(db),
		uploadRepo:  repository.NewUploadRepository(db),
		store:       store,
		cleaner:     &recordingRemover{},
	}
	h.uploads = NewUploadService(store, h.uploadRepo)
	h.notifications = NewNotificationService(h.notifRepo, nil, nil)

	var f Fanout = NewDirectFanout(h.notifications)
	if fanout != nil {
		f = fanout(h)
	}
	h.interactions = NewInteractionService(db, h.postRepo, h.likes, h.saves, f)
	h.posts = NewPostService(db, h.postRepo, h.likes, h.saves, h.commentRepo, h.uploadRepo, h.interactions, store, h.cleaner)
	h.comments = NewCommentService(db, h.postRepo, h.commentRepo, f)

	h.auth = h.newAuth(nil)
	return h
}

// newAuth unread 为 nil 时不缓存未读数
func (h *harness) newAuth(unread cache.UnreadCounter) AuthService {
	as := NewAuthService(h.db, h.users, h.postRepo, h.likes, h.saves, h.commentRepo, h.notifRepo, h.uploadRepo, unread,
		auth.NewTokenManager("test-secret", 0, "colmena-test"))
	as.(*authService).cost = bcrypt.MinCost
	return as
}

// upload 以 owner 身份上传一张 png
func (h *harness) upload(t *testing.T, owner string) string {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	url, err := h.uploads.Upload(context.Background(), owner, "image/png", &img)
	require.NoError(t, err)
	return url
}

func ptr(s string) *string { return &s }

func (h *harness) createPost(t *testing.T, owner, title string) *PostView {
	t.Helper()
	p, err := h.posts.Create(context.Background(), owner, PostInput{Title: title, Body: "Miel de azahar cosechada en primavera."})
	require.NoError(t, err)
	return p
}

func (h *harness) inbox(t *testing.T, identifier string) []*model.Notification {
	t.Helper()
	list, err := h.notifications.List(context.Background(), identifier, 1, 100)
	require.NoError(t, err)
	return list
}

func (h *harness) likeFacts(t *testing.T, postID string) int64 {
	t.Helper()
	n, err := h.likes.Count(context.Background(), postID)
	require.NoError(t, err)
	return n
}

type recordingRemover struct{ urls []string }

func (r *recordingRemover) Enqueue(url string) { r.urls = append(r.urls, url) }

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, NotifyInput) (*model.Notification, error) {
	f.calls++
	return nil, errors.New("inbox unavailable")
}
