package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/blog-reactions/internal/cache"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
	"github.com/d60-Lab/blog-reactions/pkg/logger"
)

type syncJob struct {
	kind      model.SubjectKind
	subjectID string
	enqAt     time.Time
}

// CounterSyncer 账本提交后异步把计数从数据库刷新到缓存。
// 每个任务都重新读库，任务乱序执行也会收敛到最新值。
type CounterSyncer struct {
	reader    repository.ReactionStore
	cache     *cache.CounterCache
	ch        chan syncJob
	metricsCh chan time.Duration
}

func NewCounterSyncer(reader repository.ReactionStore, c *cache.CounterCache, queueSize int) *CounterSyncer {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &CounterSyncer{reader: reader, cache: c, ch: make(chan syncJob, queueSize), metricsCh: make(chan time.Duration, 65536)}
}

// Start 启动 workers 个协程；返回的停止函数会先处理完队列中剩余任务，最长等到 ctx 结束
func (s *CounterSyncer) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-s.ch:
					s.process(job)
				case <-stopCh:
					s.drain()
					return
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

func (s *CounterSyncer) drain() {
	for {
		select {
		case job := <-s.ch:
			s.process(job)
		default:
			return
		}
	}
}

func (s *CounterSyncer) process(job syncJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 回填被拒说明之后还有提交，对应任务会再次刷新
	version := s.cache.Version(ctx, job.kind, job.subjectID)
	counters, err := s.reader.Counters(ctx, job.kind, job.subjectID)
	if err != nil {
		logger.Warn("counter sync: load failed, invalidating",
			zap.String("kind", string(job.kind)), zap.String("subject", job.subjectID), zap.Error(err))
		_ = s.cache.Invalidate(ctx, job.kind, job.subjectID)
	} else if err := s.cache.Fill(ctx, job.kind, job.subjectID, counters, version); err != nil && !errors.Is(err, cache.ErrStaleFill) {
		logger.Warn("counter sync: cache write failed",
			zap.String("kind", string(job.kind)), zap.String("subject", job.subjectID), zap.Error(err))
	}

	d := time.Since(job.enqAt)
	counterSyncLatency.Observe(d.Seconds())
	select {
	case s.metricsCh <- d:
	default:
	}
}

// Enqueue 队列满时丢弃并返回 false，缓存由 TTL 兜底
func (s *CounterSyncer) Enqueue(kind model.SubjectKind, subjectID string) bool {
	select {
	case s.ch <- syncJob{kind: kind, subjectID: subjectID, enqAt: time.Now()}:
		return true
	default:
		counterSyncDropped.Inc()
		logger.Warn("counter sync queue full, drop", zap.String("kind", string(kind)), zap.String("subject", subjectID))
		return false
	}
}

// Metrics 返回入队到写入缓存耗时的只读通道
func (s *CounterSyncer) Metrics() <-chan time.Duration { return s.metricsCh }

// QueueLen 返回当前队列长度（采样值）
func (s *CounterSyncer) QueueLen() int { return len(s.ch) }
