package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
)

type subjectKey struct {
	kind model.SubjectKind
	id   string
}

type reactionKey struct {
	subjectKey
	actor string
}

// memStore 内存版 ReactionStore，Do 期间持有全局锁，失败时整体回滚
type memStore struct {
	mu        sync.Mutex
	counters  map[subjectKey]model.Counters
	reactions map[reactionKey]*model.Reaction
	actors    map[string]bool
}

// newMemStore 预置活跃用户 A
func newMemStore() *memStore {
	return &memStore{
		counters:  make(map[subjectKey]model.Counters),
		reactions: make(map[reactionKey]*model.Reaction),
		actors:    map[string]bool{"A": true},
	}
}

func (m *memStore) setActor(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors[id] = active
}

func (m *memStore) addSubject(kind model.SubjectKind, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[subjectKey{kind, id}] = model.Counters{}
}

func (m *memStore) Do(ctx context.Context, fn func(store repository.ReactionStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[subjectKey]model.Counters, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}
	reactions := make(map[reactionKey]*model.Reaction, len(m.reactions))
	for k, v := range m.reactions {
		cp := *v
		reactions[k] = &cp
	}

	if err := fn(&memTx{m: m}); err != nil {
		m.counters, m.reactions = counters, reactions
		return err
	}
	return nil
}

// memTx 在 memStore 锁内操作
type memTx struct{ m *memStore }

func (t *memTx) LockActor(_ context.Context, id string) error {
	active, ok := t.m.actors[id]
	switch {
	case !ok:
		return fmt.Errorf("actor %s: %w", id, repository.ErrNotFound)
	case !active:
		return fmt.Errorf("actor %s: %w", id, repository.ErrActorInactive)
	}
	return nil
}

func (t *memTx) LockSubject(ctx context.Context, kind model.SubjectKind, id string) (model.Counters, error) {
	return t.Counters(ctx, kind, id)
}

func (t *memTx) Counters(_ context.Context, kind model.SubjectKind, id string) (model.Counters, error) {
	c, ok := t.m.counters[subjectKey{kind, id}]
	if !ok {
		return c, fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
	}
	return c, nil
}

func (t *memTx) FindReaction(_ context.Context, kind model.SubjectKind, id, actor string) (*model.Reaction, error) {
	r, ok := t.m.reactions[reactionKey{subjectKey{kind, id}, actor}]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) CreateReaction(_ context.Context, kind model.SubjectKind, id, actor string, isLike bool) (*model.Reaction, error) {
	key := reactionKey{subjectKey{kind, id}, actor}
	if _, ok := t.m.reactions[key]; ok {
		return nil, repository.ErrDuplicate
	}
	r := &model.Reaction{ID: uuid.New().String(), SubjectKind: kind, SubjectID: id, ActorID: actor, IsLike: isLike}
	t.m.reactions[key] = r
	return r, nil
}

func (t *memTx) UpdateReactionPolarity(_ context.Context, reactionID string, isLike bool) error {
	for _, r := range t.m.reactions {
		if r.ID == reactionID && r.IsLike != isLike {
			r.IsLike = isLike
			return nil
		}
	}
	return repository.ErrConflict
}

func (t *memTx) AdjustCounters(ctx context.Context, kind model.SubjectKind, id string, dl, dd int64) (model.Counters, error) {
	c, err := t.Counters(ctx, kind, id)
	if err != nil {
		return c, err
	}
	c.LikeCount += dl
	c.DislikeCount += dd
	if c.LikeCount < 0 || c.DislikeCount < 0 {
		return model.Counters{}, repository.ErrCounterUnderflow
	}
	t.m.counters[subjectKey{kind, id}] = c
	return c, nil
}

func (t *memTx) CountReactions(_ context.Context, kind model.SubjectKind, id string) (model.Counters, error) {
	var c model.Counters
	for k, r := range t.m.reactions {
		if k.kind != kind || k.id != id {
			continue
		}
		if r.IsLike {
			c.LikeCount++
		} else {
			c.DislikeCount++
		}
	}
	return c, nil
}

// reader 不加事务的只读视图
func (m *memStore) reader() repository.ReactionStore { return &lockedReader{m: m} }

type lockedReader struct{ m *memStore }

func (r *lockedReader) with(fn func(t *memTx) error) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return fn(&memTx{m: r.m})
}

func (r *lockedReader) LockActor(ctx context.Context, id string) error {
	return r.with(func(t *memTx) error { return t.LockActor(ctx, id) })
}

func (r *lockedReader) LockSubject(ctx context.Context, kind model.SubjectKind, id string) (c model.Counters, err error) {
	err = r.with(func(t *memTx) error { c, err = t.LockSubject(ctx, kind, id); return err })
	return
}

func (r *lockedReader) Counters(ctx context.Context, kind model.SubjectKind, id string) (c model.Counters, err error) {
	err = r.with(func(t *memTx) error { c, err = t.Counters(ctx, kind, id); return err })
	return
}

func (r *lockedReader) FindReaction(ctx context.Context, kind model.SubjectKind, id, actor string) (res *model.Reaction, err error) {
	err = r.with(func(t *memTx) error { res, err = t.FindReaction(ctx, kind, id, actor); return err })
	return
}

func (r *lockedReader) CreateReaction(ctx context.Context, kind model.SubjectKind, id, actor string, isLike bool) (res *model.Reaction, err error) {
	err = r.with(func(t *memTx) error { res, err = t.CreateReaction(ctx, kind, id, actor, isLike); return err })
	return
}

func (r *lockedReader) UpdateReactionPolarity(ctx context.Context, reactionID string, isLike bool) error {
	return r.with(func(t *memTx) error { return t.UpdateReactionPolarity(ctx, reactionID, isLike) })
}

func (r *lockedReader) AdjustCounters(ctx context.Context, kind model.SubjectKind, id string, dl, dd int64) (c model.Counters, err error) {
	err = r.with(func(t *memTx) error { c, err = t.AdjustCounters(ctx, kind, id, dl, dd); return err })
	return
}

func (r *lockedReader) CountReactions(ctx context.Context, kind model.SubjectKind, id string) (c model.Counters, err error) {
	err = r.with(func(t *memTx) error { c, err = t.CountReactions(ctx, kind, id); return err })
	return
}

// flakyUoW 前几次 Do 直接返回预设错误
type flakyUoW struct {
	inner    repository.UnitOfWork
	failures []error
	calls    int
}

func (f *flakyUoW) Do(ctx context.Context, fn func(store repository.ReactionStore) error) error {
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	return f.inner.Do(ctx, fn)
}

// racingUoW 模拟同一用户的另一笔事务抢先提交：首次 Do 的插入撞上唯一索引，
// 回滚后对手的行落库，之后的 Do 照常执行
type racingUoW struct {
	mem       *memStore
	kind      model.SubjectKind
	subject   string
	actor     string
	rivalLike bool
	calls     int
}

func (r *racingUoW) Do(ctx context.Context, fn func(store repository.ReactionStore) error) error {
	r.calls++
	if r.calls > 1 {
		return r.mem.Do(ctx, fn)
	}
	err := r.mem.Do(ctx, func(store repository.ReactionStore) error {
		return fn(dupOnCreate{store})
	})
	if err == nil {
		return nil
	}
	rival := r.mem.Do(ctx, func(store repository.ReactionStore) error {
		if _, err := store.CreateReaction(ctx, r.kind, r.subject, r.actor, r.rivalLike); err != nil {
			return err
		}
		dl, dd := int64(0), int64(1)
		if r.rivalLike {
			dl, dd = 1, 0
		}
		_, err := store.AdjustCounters(ctx, r.kind, r.subject, dl, dd)
		return err
	})
	if rival != nil {
		return rival
	}
	return err
}

type dupOnCreate struct{ repository.ReactionStore }

func (dupOnCreate) CreateReaction(context.Context, model.SubjectKind, string, string, bool) (*model.Reaction, error) {
	return nil, fmt.Errorf("insert reaction: %w", repository.ErrDuplicate)
}
