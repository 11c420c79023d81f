package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/d60-Lab/colmena/config"
	"github.com/d60-Lab/colmena/internal/api"
	"github.com/d60-Lab/colmena/internal/api/handler"
	"github.com/d60-Lab/colmena/internal/cache"
	"github.com/d60-Lab/colmena/internal/repository"
	"github.com/d60-Lab/colmena/internal/service"
	"github.com/d60-Lab/colmena/pkg/auth"
	pkgcache "github.com/d60-Lab/colmena/pkg/cache"
	"github.com/d60-Lab/colmena/pkg/database"
	"github.com/d60-Lab/colmena/pkg/events"
	"github.com/d60-Lab/colmena/pkg/logger"
	"github.com/d60-Lab/colmena/pkg/storage"
	"github.com/d60-Lab/colmena/pkg/tracing"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if port > 0 {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	var (
		unread cache.UnreadCounter = cache.NopUnreadCounter{}
		pings  []func(context.Context) error
	)
	if cfg.Redis.Enabled {
		rdb, err := pkgcache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		unread = cache.NewRedisUnreadCounter(rdb, cfg.Redis.UnreadTTL)
		pings = append(pings, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	publisher, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		return err
	}
	defer publisher.Close()

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix)
	if err != nil {
		return err
	}

	// repositories
	postRepo := repository.NewPostRepository(db)
	likes := repository.NewLikeRepository(db)
	saves := repository.NewSaveRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	userRepo := repository.NewUserRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	notifications := service.NewNotificationService(notifRepo, unread, publisher)

	var (
		fanout     service.Fanout
		stopWorker func(context.Context) error
	)
	switch cfg.Notifications.Mode {
	case config.ModeOutbox:
		fanout = service.NewOutboxFanout(outboxRepo)
		worker := service.NewFanoutWorker(outboxRepo, notifications,
			cfg.Notifications.Workers, cfg.Notifications.ClaimLimit, cfg.Notifications.PollInterval)
		worker.SetLease(cfg.Notifications.Lease)
		stopWorker = worker.Start()
	default:
		fanout = service.NewDirectFanout(notifications)
	}

	cleaner := service.NewImageCleaner(store, cfg.Notifications.CleanerQueue)
	stopCleaner := cleaner.Start(1)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	interactions := service.NewInteractionService(db, postRepo, likes, saves, fanout)
	h := handler.New(handler.Deps{
		Posts:         service.NewPostService(db, postRepo, likes, saves, commentRepo, uploadRepo, interactions, store, cleaner),
		Interactions:  interactions,
		Comments:      service.NewCommentService(db, postRepo, commentRepo, fanout),
		Notifications: notifications,
		Auth:          service.NewAuthService(db, userRepo, postRepo, likes, saves, commentRepo, notifRepo, uploadRepo, unread, tokens),
		Uploads:       service.NewUploadService(store, uploadRepo),
		Identity:      cfg.Identity,
		MaxUpload:     cfg.Storage.MaxBytes,
		DB:            db,
		Pings:         pings,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(cfg, h, tokens),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("fanout", cfg.Notifications.Mode),
			zap.String("db", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var errs []error
		errs = append(errs, srv.Shutdown(sctx))
		if stopWorker != nil {
			errs = append(errs, stopWorker(sctx))
		}
		errs = append(errs, stopCleaner(sctx))
		return errors.Join(errs...)
	})
	return g.Wait()
}
