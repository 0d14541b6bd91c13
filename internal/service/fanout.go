package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
	"github.com/d60-Lab/blog-reactions/pkg/logger"
)

// FanoutWorker 从 outbox 领取文章发布事件，写入所有订阅者的时间线
type FanoutWorker struct {
	outbox       repository.OutboxRepository
	subs         repository.SubscriptionRepository
	feed         repository.FeedRepository
	batchSize    int
	claimLimit   int
	pollInterval time.Duration
	workers      int
	lease        time.Duration
	now          func() time.Time
	metricsCh    chan time.Duration // outbox->processed latency
}

const defaultOutboxLease = time.Minute

type FanoutOption func(*FanoutWorker)

// WithLease 领取后超过该时长仍未完成的事件会被其他 worker 重新领取
func WithLease(d time.Duration) FanoutOption {
	return func(w *FanoutWorker) {
		if d > 0 {
			w.lease = d
		}
	}
}

func NewFanoutWorker(outbox repository.OutboxRepository, subs repository.SubscriptionRepository, feed repository.FeedRepository, workers, batchSize, claimLimit int, pollInterval time.Duration, opts ...FanoutOption) *FanoutWorker {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if claimLimit <= 0 {
		claimLimit = 128
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	w := &FanoutWorker{
		outbox: outbox, subs: subs, feed: feed,
		workers: workers, batchSize: batchSize, claimLimit: claimLimit, pollInterval: pollInterval,
		lease: defaultOutboxLease, now: time.Now,
		metricsCh: make(chan time.Duration, 65536),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *FanoutWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Start 启动若干 worker 轮询处理 outbox；返回停止函数。
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
			if _, err := w.ProcessOnce(context.Background()); err != nil {
				logger.Warn("fanout: claim failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 领取一批 pending 或租约过期的事件并扇出，返回处理的事件数
func (w *FanoutWorker) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := w.outbox.ClaimPending(ctx, w.claimLimit, w.now().Add(-w.lease))
	if err != nil {
		return 0, err
	}
	for _, ev := range batch {
		written, err := w.deliver(ctx, ev)
		if err != nil {
			logger.Warn("fanout: deliver failed, releasing",
				zap.String("article", ev.ArticleID), zap.Int64("written", written), zap.Error(err))
			_ = w.outbox.Release(ctx, ev.ID)
			continue
		}
		if err := w.outbox.MarkDone(ctx, ev.ID, written); err != nil {
			logger.Warn("fanout: mark done failed", zap.String("outbox", ev.ID), zap.Error(err))
		}
		if !ev.CreatedAt.IsZero() {
			select {
			case w.metricsCh <- time.Since(ev.CreatedAt):
			default:
			}
		}
	}
	return len(batch), nil
}

// deliver 分页读取订阅者并批量写入时间线，重复投递由唯一索引吸收
func (w *FanoutWorker) deliver(ctx context.Context, ev model.Outbox) (int64, error) {
	var total int64
	offset := 0
	score := ev.CreatedAt.UnixNano()
	for {
		subs, err := w.subs.ListSubscribers(ctx, ev.AuthorID, offset, w.batchSize)
		if err != nil {
			return total, err
		}
		if len(subs) == 0 {
			break
		}
		now := time.Now()
		items := make([]model.FeedItem, 0, len(subs))
		for _, s := range subs {
			items = append(items, model.FeedItem{ID: uuid.New().String(), UserID: s.SubscriberID, ArticleID: ev.ArticleID, Score: score, CreatedAt: now})
		}
		if err := w.feed.Insert(ctx, items); err != nil {
			return total, err
		}
		total += int64(len(items))
		fanoutDelivered.Add(float64(len(items)))
		if len(subs) < w.batchSize {
			break
		}
		offset += w.batchSize
	}
	return total, nil
}
