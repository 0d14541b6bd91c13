package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/blog-reactions/config"
	"github.com/d60-Lab/blog-reactions/internal/api"
	"github.com/d60-Lab/blog-reactions/internal/api/handler"
	"github.com/d60-Lab/blog-reactions/internal/cache"
	"github.com/d60-Lab/blog-reactions/internal/ledger"
	"github.com/d60-Lab/blog-reactions/internal/repository"
	"github.com/d60-Lab/blog-reactions/internal/service"
	"github.com/d60-Lab/blog-reactions/pkg/auth"
	"github.com/d60-Lab/blog-reactions/pkg/database"
	"github.com/d60-Lab/blog-reactions/pkg/logger"
	"github.com/d60-Lab/blog-reactions/pkg/tracing"
)

// @title Blog Reactions API
// @version 1.0
// @description 文章、评论、点赞/点踩与作者订阅
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	gin.SetMode(cfg.Server.Mode)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		return err
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	rdb, err := database.InitRedis(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb == nil {
		logger.Warn("redis not configured, counter cache disabled")
	} else {
		defer rdb.Close()
	}

	// repositories
	users := repository.NewUserRepository(db)
	articles := repository.NewArticleRepository(db)
	comments := repository.NewCommentRepository(db)
	subs := repository.NewSubscriptionRepository(db)
	feed := repository.NewFeedRepository(db)
	outbox := repository.NewOutboxRepository(db)
	reactions := repository.NewReactionStore(db)

	// background workers
	counterCache := cache.NewCounterCache(rdb, cfg.Redis.TTL)
	syncer := service.NewCounterSyncer(reactions, counterCache, cfg.Workers.CounterQueueSize)
	stopSyncer := syncer.Start(cfg.Workers.CounterSyncers)
	fanout := service.NewFanoutWorker(outbox, subs, feed,
		cfg.Workers.FanoutWorkers, cfg.Workers.FanoutBatchSize, cfg.Workers.FanoutClaimLimit, cfg.Workers.FanoutPoll,
		service.WithLease(cfg.Workers.OutboxLease))
	stopFanout := fanout.Start()

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	userSvc := service.NewUserService(users, tokens,
		service.WithAdminEmail(cfg.Account.AdminEmail),
		service.WithResetTTL(cfg.Account.ResetTTL))
	if err := userSvc.BootstrapAdmin(context.Background()); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	l := ledger.New(repository.NewUnitOfWork(db), reactions)
	h := handler.NewHandler(
		userSvc,
		service.NewArticleService(db),
		service.NewCommentService(articles, comments),
		service.NewSubscriptionService(users, subs, feed),
		service.NewReactionService(l, counterCache, syncer),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(cfg, h, tokens, db),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port), zap.String("db", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stopFanout(ctx); err != nil {
		logger.Warn("fanout stop", zap.Error(err))
	}
	if err := stopSyncer(ctx); err != nil {
		logger.Warn("counter syncer stop", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	return nil
}
