package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

// ReactionStore 点赞账本的持久化契约。由 UnitOfWork 提供时，所有调用处于同一事务。
type ReactionStore interface {
	// LockSubject 读取对象计数并加行锁；对象不存在返回 ErrNotFound
	LockSubject(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error)

	// LockActor 以共享锁读取用户行，使封禁与表态互斥；
	// 用户不存在返回 ErrNotFound，已封禁返回 ErrActorInactive
	LockActor(ctx context.Context, actorID string) error

	// Counters 无锁读取计数（展示用）
	Counters(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error)

	// FindReaction 查询 (对象, 用户) 的账本行；不存在时返回 nil, nil
	FindReaction(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (*model.Reaction, error)

	CreateReaction(ctx context.Context, kind model.SubjectKind, subjectID, actorID string, isLike bool) (*model.Reaction, error)

	UpdateReactionPolarity(ctx context.Context, reactionID string, isLike bool) error

	// AdjustCounters 在 SQL 中原子增减计数，返回调整后的值；任一计数会变为负数时返回 ErrCounterUnderflow
	AdjustCounters(ctx context.Context, kind model.SubjectKind, subjectID string, deltaLike, deltaDislike int64) (model.Counters, error)

	// CountReactions 直接统计账本行数（对账用）
	CountReactions(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error)
}

// UnitOfWork 在单个事务内执行 fn：fn 返回 nil 提交，返回错误或 panic 时回滚
type UnitOfWork interface {
	Do(ctx context.Context, fn func(store ReactionStore) error) error
}

type reactionStore struct {
	db *gorm.DB
}

func NewReactionStore(db *gorm.DB) ReactionStore { return &reactionStore{db: db} }

type gormUnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork { return &gormUnitOfWork{db: db} }

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(store ReactionStore) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&reactionStore{db: tx})
	})
	return translate(err)
}

func (r *reactionStore) LockSubject(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error) {
	return r.readCounters(ctx, kind, subjectID, true)
}

func (r *reactionStore) LockActor(ctx context.Context, actorID string) error {
	var rows []struct{ IsActive bool }
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("is_active").
		Where("id = ?", actorID).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return translate(err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("actor %s: %w", actorID, ErrNotFound)
	}
	if !rows[0].IsActive {
		return fmt.Errorf("actor %s: %w", actorID, ErrActorInactive)
	}
	return nil
}

func (r *reactionStore) Counters(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error) {
	return r.readCounters(ctx, kind, subjectID, false)
}

func (r *reactionStore) readCounters(ctx context.Context, kind model.SubjectKind, subjectID string, lock bool) (model.Counters, error) {
	var c model.Counters
	if !kind.Valid() {
		return c, fmt.Errorf("subject kind %q: %w", kind, ErrNotFound)
	}
	q := r.db.WithContext(ctx).
		Table(kind.Table()).
		Select("like_count", "dislike_count").
		Where("id = ?", subjectID)
	if lock {
		// SQLite 驱动会忽略该子句
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	res := q.Limit(1).Scan(&c)
	if res.Error != nil {
		return c, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return c, fmt.Errorf("%s %s: %w", kind, subjectID, ErrNotFound)
	}
	return c, nil
}

func (r *reactionStore) FindReaction(ctx context.Context, kind model.SubjectKind, subjectID, actorID string) (*model.Reaction, error) {
	var rows []model.Reaction
	err := r.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ? AND actor_id = ?", kind, subjectID, actorID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *reactionStore) CreateReaction(ctx context.Context, kind model.SubjectKind, subjectID, actorID string, isLike bool) (*model.Reaction, error) {
	row := &model.Reaction{
		ID:          uuid.New().String(),
		SubjectKind: kind,
		SubjectID:   subjectID,
		ActorID:     actorID,
		IsLike:      isLike,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, translate(err)
	}
	return row, nil
}

func (r *reactionStore) UpdateReactionPolarity(ctx context.Context, reactionID string, isLike bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.Reaction{}).
		Where("id = ? AND is_like = ?", reactionID, !isLike).
		Update("is_like", isLike)
	if res.Error != nil {
		return translate(res.Error)
	}
	// 行已被别的事务翻转或删除
	if res.RowsAffected == 0 {
		return fmt.Errorf("reaction %s: %w", reactionID, ErrConflict)
	}
	return nil
}

func (r *reactionStore) AdjustCounters(ctx context.Context, kind model.SubjectKind, subjectID string, deltaLike, deltaDislike int64) (model.Counters, error) {
	if !kind.Valid() {
		return model.Counters{}, fmt.Errorf("subject kind %q: %w", kind, ErrNotFound)
	}
	res := r.db.WithContext(ctx).
		Table(kind.Table()).
		Where("id = ?", subjectID).
		Where("like_count + ? >= 0 AND dislike_count + ? >= 0", deltaLike, deltaDislike).
		Updates(map[string]interface{}{
			"like_count":    gorm.Expr("like_count + ?", deltaLike),
			"dislike_count": gorm.Expr("dislike_count + ?", deltaDislike),
		})
	if res.Error != nil {
		return model.Counters{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.Counters(ctx, kind, subjectID); err != nil {
			return model.Counters{}, err
		}
		return model.Counters{}, fmt.Errorf("%s %s: %w", kind, subjectID, ErrCounterUnderflow)
	}
	return r.Counters(ctx, kind, subjectID)
}

func (r *reactionStore) CountReactions(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, error) {
	var c model.Counters
	err := r.db.WithContext(ctx).
		Model(&model.Reaction{}).
		Select(
			"COALESCE(SUM(CASE WHEN is_like THEN 1 ELSE 0 END), 0) AS like_count",
			"COALESCE(SUM(CASE WHEN is_like THEN 0 ELSE 1 END), 0) AS dislike_count",
		).
		Where("subject_kind = ? AND subject_id = ?", kind, subjectID).
		Scan(&c).Error
	return c, translate(err)
}
