// likebench 并发切换点赞，结束后校验 like_count 与事实表一致
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/colmena/config"
	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/internal/service"
	"github.com/d60-Lab/colmena/pkg/database"
	"github.com/d60-Lab/colmena/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	_ = logger.Init("warn", "console")
	db := must(database.InitDB(cfg))
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	N := envInt("N", 2000)        // toggle 次数
	CONC := envInt("CONC", 8)     // 并发
	USERS := envInt("USERS", 50)  // 参与的身份数
	POSTS := envInt("POSTS", 5)   // 热门帖子数
	mode := cfg.Notifications.Mode

	postRepo := repository.NewPostRepository(db)
	likes := repository.NewLikeRepository(db)
	saves := repository.NewSaveRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, nil)

	var (
		fanout service.Fanout
		worker *service.FanoutWorker
	)
	if mode == config.ModeOutbox {
		fanout = service.NewOutboxFanout(outboxRepo)
		worker = service.NewFanoutWorker(outboxRepo, notifications, 4, 256, 20*time.Millisecond)
	} else {
		fanout = service.NewDirectFanout(notifications)
	}
	svc := service.NewInteractionService(db, postRepo, likes, saves, fanout)

	ctx := context.Background()

	// seed posts
	postIDs := make([]string, POSTS)
	for i := range postIDs {
		p := &model.Post{
			ID:         uuid.New().String(),
			OwnerID:    "bench-owner",
			AuthorName: "bench",
			Title:      fmt.Sprintf("bench post %d", i),
			Body:       "bench",
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		must(0, postRepo.Create(ctx, p))
		postIDs[i] = p.ID
	}
	users := make([]string, USERS)
	for i := range users {
		users[i] = uuid.New().String()
	}

	var deliveries []time.Duration
	var stopWorker func(context.Context) error
	doneMetrics := make(chan struct{})
	if worker != nil {
		stopWorker = worker.Start()
		go func() {
			defer close(doneMetrics)
			for {
				select {
				case d := <-worker.Metrics():
					deliveries = append(deliveries, d)
				case <-time.After(2 * time.Second):
					return
				}
			}
		}()
	} else {
		close(doneMetrics)
	}

	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	lat := make(chan time.Duration, N)
	var failed sync.Map
	var wg sync.WaitGroup
	t0 := time.Now()
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				if _, err := svc.ToggleLike(ctx, postIDs[i%POSTS], users[(i/POSTS)%USERS]); err != nil {
					failed.Store(i, err)
				}
				lat <- time.Since(st)
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)
	close(lat)
	recs := make([]time.Duration, 0, N)
	for d := range lat {
		recs = append(recs, d)
	}

	if stopWorker != nil {
		<-doneMetrics
		_ = stopWorker(ctx)
	}

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 {
			return 0
		}
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}

	errCount := 0
	failed.Range(func(_, v any) bool {
		errCount++
		if errCount == 1 {
			logger.Warn("toggle failed", zap.Any("err", v))
		}
		return true
	})

	fmt.Printf("N=%d, CONC=%d, USERS=%d, POSTS=%d, mode=%s, db=%s\n", N, CONC, USERS, POSTS, mode, cfg.Database.Driver)
	fmt.Printf("Toggle total: %v, per op: %v, p50: %v, p95: %v, p99: %v, errors: %d\n",
		total, total/time.Duration(N), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99), errCount)
	if len(deliveries) > 0 {
		fmt.Printf("Outbox delivery: samples=%d, p50=%v, p95=%v, p99=%v\n",
			len(deliveries), pct(deliveries, 0.50), pct(deliveries, 0.95), pct(deliveries, 0.99))
	}

	drift := 0
	for _, id := range postIDs {
		p := must(postRepo.GetByID(ctx, id))
		facts := must(likes.Count(ctx, id))
		status := "ok"
		if p.LikeCount != facts {
			status = "DRIFT"
			drift++
		}
		fmt.Printf("post %s like_count=%d facts=%d %s\n", id[:8], p.LikeCount, facts, status)
	}
	if drift > 0 {
		os.Exit(1)
	}
}
