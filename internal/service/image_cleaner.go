package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/colmena/pkg/logger"
	"github.com/d60-Lab/colmena/pkg/storage"
)

type cleanupJob struct {
	url   string
	enqAt time.Time
}

// ImageRemover 帖子删除/换图后异步清理旧图
type ImageRemover interface {
	Enqueue(url string)
}

// ImageCleaner 本地异步执行器：失败只记录日志，不影响帖子操作
type ImageCleaner struct {
	store     storage.ImageStore
	ch        chan cleanupJob
	metricsCh chan time.Duration
}

func NewImageCleaner(store storage.ImageStore, queueSize int) *ImageCleaner {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &ImageCleaner{store: store, ch: make(chan cleanupJob, queueSize), metricsCh: make(chan time.Duration, 1024)}
}

// Start 启动 worker；停止函数会先处理完队列中剩余的任务
func (c *ImageCleaner) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 1
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-c.ch:
					c.run(job)
				case <-stopCh:
					// 排空
					for {
						select {
						case job := <-c.ch:
							c.run(job)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
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

func (c *ImageCleaner) run(job cleanupJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store.Delete(ctx, job.url); err != nil {
		logger.Warn("remove post image failed", zap.String("url", job.url), zap.Error(err))
	}
	select {
	case c.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// Enqueue 非阻塞；外部图片直接忽略
func (c *ImageCleaner) Enqueue(url string) {
	if !c.store.Managed(url) {
		return
	}
	select {
	case c.ch <- cleanupJob{url: url, enqAt: time.Now()}:
	default:
		logger.Warn("image cleaner queue full, drop", zap.String("url", url))
	}
}

// Metrics 每处理一条发送一次排队+执行耗时
func (c *ImageCleaner) Metrics() <-chan time.Duration { return c.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (c *ImageCleaner) QueueLen() int { return len(c.ch) }
