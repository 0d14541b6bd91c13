package ledger

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
)

const defaultMaxAttempts = 2

// Result 一次调用后的对象计数与该用户的状态
type Result struct {
	Kind      model.SubjectKind   `json:"kind"`
	SubjectID string              `json:"subject_id"`
	ActorID   string              `json:"actor_id"`
	State     model.ReactionState `json:"state"`
	Changed   bool                `json:"changed"`
	model.Counters
}

// Ledger 点赞/点踩账本：每个 (对象, 用户) 至多一条记录，对象上的计数始终与账本一致。
// 文章与评论共用同一实现，差异只在 SubjectKind。
type Ledger struct {
	uow         repository.UnitOfWork
	reader      repository.ReactionStore
	maxAttempts int
	tracer      trace.Tracer
}

type Option func(*Ledger)

// WithMaxAttempts 冲突时的总尝试次数（含首次）
func WithMaxAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(l *Ledger) { l.tracer = t }
}

func New(uow repository.UnitOfWork, reader repository.ReactionStore, opts ...Option) *Ledger {
	l := &Ledger{
		uow:         uow,
		reader:      reader,
		maxAttempts: defaultMaxAttempts,
		tracer:      otel.Tracer("github.com/d60-Lab/blog-reactions/internal/ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) ApplyLike(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (*Result, error) {
	return l.apply(ctx, kind, subjectID, actorID, true)
}

func (l *Ledger) ApplyDislike(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (*Result, error) {
	return l.apply(ctx, kind, subjectID, actorID, false)
}

func (l *Ledger) apply(ctx context.Context, kind model.SubjectKind, subjectID, actorID string, like bool) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if actorID == "" {
		return nil, ErrAnonymousActor
	}

	ctx, span := l.tracer.Start(ctx, "ledger.apply", trace.WithAttributes(
		attribute.String("subject.kind", string(kind)),
		attribute.String("subject.id", subjectID),
		attribute.Bool("reaction.like", like),
	))
	defer span.End()

	var (
		res *Result
		err error
	)
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		res, err = l.applyOnce(ctx, kind, subjectID, actorID, like)
		if err == nil || !retryable(err) {
			break
		}
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt), attribute.String("cause", err.Error())))
	}
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("reaction.state", string(res.State)), attribute.Bool("reaction.changed", res.Changed))
	return res, nil
}

// applyOnce 单个事务：校验用户 -> 锁对象行 -> 查账本 -> 写账本 -> 调整计数
func (l *Ledger) applyOnce(ctx context.Context, kind model.SubjectKind, subjectID, actorID string, like bool) (*Result, error) {
	res := &Result{Kind: kind, SubjectID: subjectID, ActorID: actorID}
	err := l.uow.Do(ctx, func(store repository.ReactionStore) error {
		if err := store.LockActor(ctx, actorID); err != nil {
			return err
		}
		counters, err := store.LockSubject(ctx, kind, subjectID)
		if err != nil {
			return err
		}
		existing, err := store.FindReaction(ctx, kind, subjectID, actorID)
		if err != nil {
			return err
		}

		t := Next(model.StateOf(existing), like)
		res.State = t.To
		if t.NoOp() {
			res.Counters = counters
			return nil
		}

		if existing == nil {
			if _, err := store.CreateReaction(ctx, kind, subjectID, actorID, like); err != nil {
				return err
			}
		} else if err := store.UpdateReactionPolarity(ctx, existing.ID, like); err != nil {
			return err
		}

		counters, err = store.AdjustCounters(ctx, kind, subjectID, t.DeltaLike, t.DeltaDislike)
		if err != nil {
			return err
		}
		res.Counters = counters
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Counters 读取对象当前计数，不加锁
func (l *Ledger) Counters(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error) {
	if !kind.Valid() {
		return model.Counters{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	c, err := l.reader.Counters(ctx, kind, subjectID)
	return c, classify(err)
}

// State 用户对对象的当前表态
func (l *Ledger) State(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (model.ReactionState, error) {
	if !kind.Valid() {
		return model.StateNone, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	r, err := l.reader.FindReaction(ctx, kind, subjectID, actorID)
	if err != nil {
		return model.StateNone, classify(err)
	}
	return model.StateOf(r), nil
}

// Audit 对比冗余计数与账本行数，consistent 为 false 表示计数漂移。
// 两次读取在同一事务内并持有对象行锁，与并发写入互斥。
func (l *Ledger) Audit(ctx context.Context, kind model.SubjectKind, subjectID string) (stored, counted model.Counters, consistent bool, err error) {
	if !kind.Valid() {
		return stored, counted, false, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	err = l.uow.Do(ctx, func(store repository.ReactionStore) error {
		var err error
		if stored, err = store.LockSubject(ctx, kind, subjectID); err != nil {
			return err
		}
		counted, err = store.CountReactions(ctx, kind, subjectID)
		return err
	})
	if err != nil {
		return stored, counted, false, classify(err)
	}
	return stored, counted, stored == counted, nil
}
