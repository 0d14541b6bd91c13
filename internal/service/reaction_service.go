package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/blog-reactions/internal/cache"
	"github.com/d60-Lab/blog-reactions/internal/ledger"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/pkg/logger"
)

// ReactionService 账本之上的读写入口：写走账本事务，读优先走缓存
type ReactionService interface {
	Like(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (*ledger.Result, error)
	Dislike(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (*ledger.Result, error)
	Counts(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error)
	State(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (model.ReactionState, error)
}

type reactionService struct {
	ledger *ledger.Ledger
	cache  *cache.CounterCache
	syncer *CounterSyncer
}

// NewReactionService syncer 为 nil 时提交后直接删除缓存
func NewReactionService(l *ledger.Ledger, c *cache.CounterCache, syncer *CounterSyncer) ReactionService {
	return &reactionService{ledger: l, cache: c, syncer: syncer}
}

func (s *reactionService) Like(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (*ledger.Result, error) {
	res, err := s.ledger.ApplyLike(ctx, kind, subjectID, actorID)
	reactionOpsTotal.WithLabelValues(kindLabel(kind), "like", outcome(res != nil && res.Changed, err)).Inc()
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, res)
	return res, nil
}

func (s *reactionService) Dislike(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (*ledger.Result, error) {
	res, err := s.ledger.ApplyDislike(ctx, kind, subjectID, actorID)
	reactionOpsTotal.WithLabelValues(kindLabel(kind), "dislike", outcome(res != nil && res.Changed, err)).Inc()
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, res)
	return res, nil
}

// afterCommit 每次提交都先推进缓存版本，使读库早于提交的回填作废，
// 再交给 syncer 刷新；无法入队时直接删除缓存
func (s *reactionService) afterCommit(ctx context.Context, res *ledger.Result) {
	if !res.Changed {
		return
	}
	if s.syncer != nil {
		if err := s.cache.Touch(ctx, res.Kind, res.SubjectID); err != nil {
			logger.Warn("counter cache touch failed",
				zap.String("kind", string(res.Kind)), zap.String("subject", res.SubjectID), zap.Error(err))
		}
		if s.syncer.Enqueue(res.Kind, res.SubjectID) {
			return
		}
	}
	if err := s.cache.Invalidate(ctx, res.Kind, res.SubjectID); err != nil {
		logger.Warn("counter cache invalidate failed",
			zap.String("kind", string(res.Kind)), zap.String("subject", res.SubjectID), zap.Error(err))
	}
}

func (s *reactionService) Counts(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error) {
	if c, ok := s.cache.Get(ctx, kind, subjectID); ok {
		return c, nil
	}
	version := s.cache.Version(ctx, kind, subjectID)
	c, err := s.ledger.Counters(ctx, kind, subjectID)
	if err != nil {
		return c, err
	}
	if err := s.cache.Fill(ctx, kind, subjectID, c, version); err != nil {
		logger.Debug("counter cache fill skipped", zap.Error(err))
	}
	return c, nil
}

func (s *reactionService) State(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (model.ReactionState, error) {
	if actorID == "" {
		return model.StateNone, nil
	}
	return s.ledger.State(ctx, kind, subjectID, actorID)
}
