package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/pkg/logger"
)

// Event 一次互动（点赞/收藏/评论）触发的通知意图
type Event struct {
	Kind        model.NotificationKind
	PostID      string
	PostTitle   string
	ActorID     string
	ActorName   string
	RecipientID string
}

// shouldNotify 自己对自己的帖子互动不产生通知
func shouldNotify(actorID, ownerID string) bool { return actorID != ownerID }

// Input 渲染成收件箱条目
func (e Event) Input() NotifyInput {
	actor := e.ActorName
	if actor == "" {
		actor = "Alguien"
	}
	var msg string
	switch e.Kind {
	case model.NotificationLike:
		msg = fmt.Sprintf("A %s le gustó tu publicación \"%s\"", actor, e.PostTitle)
	case model.NotificationSave:
		msg = fmt.Sprintf("%s guardó tu publicación \"%s\"", actor, e.PostTitle)
	case model.NotificationComment:
		msg = fmt.Sprintf("%s comentó tu publicación \"%s\"", actor, e.PostTitle)
	default:
		msg = fmt.Sprintf("Nueva actividad en \"%s\"", e.PostTitle)
	}
	return NotifyInput{
		RecipientID:   e.RecipientID,
		Kind:          e.Kind,
		Message:       msg,
		Link:          "/posts/" + e.PostID,
		RelatedPostID: e.PostID,
	}
}

// Fanout 把互动事件变成通知。Stage 在写事务内调用，Deliver 在提交后调用
type Fanout interface {
	Stage(ctx context.Context, tx *gorm.DB, ev Event) error
	Deliver(ctx context.Context, ev Event)
}

// DirectFanout 提交后同步写通知；失败只记录，不回滚互动
type DirectFanout struct {
	notifier Notifier
}

func NewDirectFanout(notifier Notifier) *DirectFanout { return &DirectFanout{notifier: notifier} }

func (f *DirectFanout) Stage(context.Context, *gorm.DB, Event) error { return nil }

func (f *DirectFanout) Deliver(ctx context.Context, ev Event) {
	if _, err := f.notifier.Notify(ctx, ev.Input()); err != nil {
		logger.Warn("notification delivery failed",
			zap.String("kind", string(ev.Kind)),
			zap.String("post", ev.PostID),
			zap.String("recipient", ev.RecipientID),
			zap.Error(err))
	}
}

// OutboxFanout 在互动事务内写 outbox，由 FanoutWorker 异步投递
type OutboxFanout struct {
	outbox repository.OutboxRepository
}

func NewOutboxFanout(outbox repository.OutboxRepository) *OutboxFanout {
	return &OutboxFanout{outbox: outbox}
}

func (f *OutboxFanout) Stage(ctx context.Context, tx *gorm.DB, ev Event) error {
	return f.outbox.WithTx(tx).Enqueue(ctx, &model.Outbox{
		ID:          uuid.New().String(),
		Kind:        ev.Kind,
		PostID:      ev.PostID,
		PostTitle:   ev.PostTitle,
		ActorID:     ev.ActorID,
		ActorName:   ev.ActorName,
		RecipientID: ev.RecipientID,
		CreatedAt:   time.Now(),
		Status:      model.OutboxPending,
	})
}

func (f *OutboxFanout) Deliver(context.Context, Event) {}

// FanoutWorker 从 outbox 拉取通知意图并写入收件箱
type FanoutWorker struct {
	outbox       repository.OutboxRepository
	notifier     Notifier
	claimLimit   int
	maxAttempts  int
	pollInterval time.Duration
	lease        time.Duration
	workers      int
	metricsCh    chan time.Duration // outbox->delivered latency
}

func NewFanoutWorker(outbox repository.OutboxRepository, notifier Notifier, workers, claimLimit int, pollInterval time.Duration) *FanoutWorker {
	if workers <= 0 {
		workers = 2
	}
	if claimLimit <= 0 {
		claimLimit = 64
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &FanoutWorker{
		outbox:       outbox,
		notifier:     notifier,
		claimLimit:   claimLimit,
		maxAttempts:  5,
		pollInterval: pollInterval,
		lease:        2 * time.Minute,
		workers:      workers,
		metricsCh:    make(chan time.Duration, 4096),
	}
}

func (w *FanoutWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// SetLease 超过 lease 仍未完成的 processing 事件会被重新领取；<=0 关闭回收
func (w *FanoutWorker) SetLease(d time.Duration) { w.lease = d }

// Start 启动若干 worker 轮询 outbox；返回的停止函数会等待 worker 退出
func (w *FanoutWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(stop)
		}()
	}
	return func(ctx context.Context) error {
		close(stop)
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *FanoutWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := w.processOnce(ctx); err != nil {
				logger.Warn("outbox claim failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// processOnce 领取一批 pending（及租约过期的 processing）事件并投递，返回成功条数
func (w *FanoutWorker) processOnce(ctx context.Context) (int, error) {
	batch, err := w.outbox.Claim(ctx, w.claimLimit, w.lease)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, b := range batch {
		ev := Event{
			Kind:        b.Kind,
			PostID:      b.PostID,
			PostTitle:   b.PostTitle,
			ActorID:     b.ActorID,
			ActorName:   b.ActorName,
			RecipientID: b.RecipientID,
		}
		if _, err := w.notifier.Notify(ctx, ev.Input()); err != nil {
			logger.Warn("outbox delivery failed", zap.String("outbox", b.ID), zap.Int("attempts", b.Attempts+1), zap.Error(err))
			if rerr := w.outbox.Release(ctx, b.ID, w.maxAttempts); rerr != nil {
				logger.Error("outbox release failed", zap.String("outbox", b.ID), zap.Error(rerr))
			}
			continue
		}
		if err := w.outbox.MarkDone(ctx, b.ID); err != nil {
			logger.Error("outbox mark done failed", zap.String("outbox", b.ID), zap.Error(err))
		}
		delivered++
		if !b.CreatedAt.IsZero() {
			select {
			case w.metricsCh <- time.Since(b.CreatedAt):
			default:
			}
		}
	}
	return delivered, nil
}
