package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/colmena/internal/cache"
	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/internal/testutil"
	"github.com/d60-Lab/colmena/pkg/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.NotificationCreated
	err    error
}

func (p *recordingPublisher) PublishNotification(ev events.NotificationCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() {}

func newNotificationService(t *testing.T, pub events.Publisher) (NotificationService, *cache.RedisUnreadCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	counter := cache.NewRedisUnreadCounter(client, time.Minute)
	repo := repository.NewNotificationRepository(testutil.NewDB(t))
	return NewNotificationService(repo, counter, pub), counter, mr
}

func likeInput(recipient string) NotifyInput {
	return Event{Kind: model.NotificationLike, PostID: "p1", PostTitle: "Miel", ActorID: "U2", RecipientID: recipient}.Input()
}

func TestNotificationService_NotifyValidates(t *testing.T) {
	svc, _, _ := newNotificationService(t, nil)
	ctx := context.Background()

	_, err := svc.Notify(ctx, NotifyInput{RecipientID: "U1", Kind: "poke"})
	assert.Error(t, err)
	_, err = svc.Notify(ctx, NotifyInput{Kind: model.NotificationLike})
	assert.Error(t, err)
}

func TestNotificationService_UnreadCountCached(t *testing.T) {
	pub := &recordingPublisher{}
	svc, counter, mr := newNotificationService(t, pub)
	ctx := context.Background()

	n, err := svc.Notify(ctx, likeInput("U1"))
	require.NoError(t, err)
	assert.Equal(t, `A Alguien le gustó tu publicación "Miel"`, n.Message)

	cnt, err := svc.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)
	assert.True(t, mr.Exists("notifications:unread:U1"))

	counter.ResetStats()
	cnt, err = svc.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)
	assert.EqualValues(t, 1, counter.Stats().Hits)

	// 新通知使缓存失效
	_, err = svc.Notify(ctx, likeInput("U1"))
	require.NoError(t, err)
	assert.False(t, mr.Exists("notifications:unread:U1"))
	cnt, err = svc.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cnt)

	require.Len(t, pub.events, 2)
	assert.Equal(t, "U1", pub.events[0].RecipientID)
	assert.Equal(t, "like", pub.events[0].Kind)
}

func TestNotificationService_MarkRead(t *testing.T) {
	svc, _, mr := newNotificationService(t, nil)
	ctx := context.Background()

	n, err := svc.Notify(ctx, likeInput("U1"))
	require.NoError(t, err)
	_, err = svc.Notify(ctx, likeInput("U1"))
	require.NoError(t, err)
	_, err = svc.CountUnread(ctx, "U1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkRead(ctx, n.ID, "U2"), ErrForbidden)
	assert.ErrorIs(t, svc.MarkRead(ctx, "missing", "U1"), ErrNotificationNotFound)

	require.NoError(t, svc.MarkRead(ctx, n.ID, "U1"))
	assert.False(t, mr.Exists("notifications:unread:U1"))
	require.NoError(t, svc.MarkRead(ctx, n.ID, "U1"), "idempotent")

	cnt, err := svc.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)

	affected, err := svc.MarkAllRead(ctx, "U1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	cnt, err = svc.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.Zero(t, cnt)
}

func TestNotificationService_PublishFailureIgnored(t *testing.T) {
	svc, _, _ := newNotificationService(t, &recordingPublisher{err: errors.New("nats down")})

	n, err := svc.Notify(context.Background(), likeInput("U1"))
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
}

func TestNotificationService_RedisDownFallsBack(t *testing.T) {
	svc, _, mr := newNotificationService(t, nil)
	ctx := context.Background()

	_, err := svc.Notify(ctx, likeInput("U1"))
	require.NoError(t, err)
	mr.Close()

	cnt, err := svc.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)
}
