package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

func TestLockSubjectMissing(t *testing.T) {
	db := setupTestDB(t)
	store := NewReactionStore(db)

	_, err := store.LockSubject(context.Background(), model.KindArticle, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.LockSubject(context.Background(), model.SubjectKind("posts"), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateReactionDuplicate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := seedUser(t, db, "Ada", "Lovelace")
	a := seedArticle(t, db, author.ID, "t", "b")
	store := NewReactionStore(db)

	_, err := store.CreateReaction(ctx, model.KindArticle, a.ID, author.ID, true)
	require.NoError(t, err)

	_, err = store.CreateReaction(ctx, model.KindArticle, a.ID, author.ID, false)
	assert.ErrorIs(t, err, ErrDuplicate)

	// 同一 id 在另一类型下是独立的账本行
	_, err = store.CreateReaction(ctx, model.KindComment, a.ID, author.ID, false)
	assert.NoError(t, err)
}

func TestFindReaction(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := NewReactionStore(db)
	u := seedUser(t, db, "Ada", "Lovelace")

	r, err := store.FindReaction(ctx, model.KindArticle, "a1", u.ID)
	require.NoError(t, err)
	assert.Nil(t, r)

	created, err := store.CreateReaction(ctx, model.KindArticle, "a1", u.ID, false)
	require.NoError(t, err)

	r, err = store.FindReaction(ctx, model.KindArticle, "a1", u.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, created.ID, r.ID)
	assert.False(t, r.IsLike)
}

func TestUpdateReactionPolarity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := NewReactionStore(db)
	u := seedUser(t, db, "Ada", "Lovelace")

	r, err := store.CreateReaction(ctx, model.KindComment, "c1", u.ID, false)
	require.NoError(t, err)

	require.NoError(t, store.UpdateReactionPolarity(ctx, r.ID, true))

	// 已经是 like，再次翻转到 like 说明读到的是旧状态
	err = store.UpdateReactionPolarity(ctx, r.ID, true)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdjustCounters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := seedUser(t, db, "Ada", "Lovelace")
	a := seedArticle(t, db, author.ID, "t", "b")
	store := NewReactionStore(db)

	c, err := store.AdjustCounters(ctx, model.KindArticle, a.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, model.Counters{LikeCount: 1}, c)

	c, err = store.AdjustCounters(ctx, model.KindArticle, a.ID, -1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.Counters{LikeCount: 0, DislikeCount: 1}, c)

	_, err = store.AdjustCounters(ctx, model.KindArticle, a.ID, -1, 0)
	assert.ErrorIs(t, err, ErrCounterUnderflow)

	_, err = store.AdjustCounters(ctx, model.KindArticle, "missing", 1, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	c, err = store.Counters(ctx, model.KindArticle, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Counters{LikeCount: 0, DislikeCount: 1}, c)
}

func TestUnitOfWorkRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := seedUser(t, db, "Ada", "Lovelace")
	a := seedArticle(t, db, author.ID, "t", "b")
	uow := NewUnitOfWork(db)
	boom := errors.New("boom")

	err := uow.Do(ctx, func(store ReactionStore) error {
		if _, err := store.CreateReaction(ctx, model.KindArticle, a.ID, author.ID, true); err != nil {
			return err
		}
		if _, err := store.AdjustCounters(ctx, model.KindArticle, a.ID, 1, 0); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	store := NewReactionStore(db)
	r, err := store.FindReaction(ctx, model.KindArticle, a.ID, author.ID)
	require.NoError(t, err)
	assert.Nil(t, r)
	c, err := store.Counters(ctx, model.KindArticle, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Counters{}, c)
}

func TestCountReactions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := NewReactionStore(db)
	subject := uuid.New().String()

	for i, like := range []bool{true, true, false} {
		_, err := store.CreateReaction(ctx, model.KindComment, subject, seedUser(t, db, "U", "").ID, like)
		require.NoError(t, err, "row %d", i)
	}
	_, err := store.CreateReaction(ctx, model.KindArticle, subject, seedUser(t, db, "V", "").ID, true)
	require.NoError(t, err)

	c, err := store.CountReactions(ctx, model.KindComment, subject)
	require.NoError(t, err)
	assert.Equal(t, model.Counters{LikeCount: 2, DislikeCount: 1}, c)
}

func TestLockActor(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := NewReactionStore(db)
	u := seedUser(t, db, "Ada", "Lovelace")

	assert.NoError(t, store.LockActor(ctx, u.ID))
	assert.ErrorIs(t, store.LockActor(ctx, "ghost"), ErrNotFound)

	require.NoError(t, NewUserRepository(db).SetActive(ctx, u.ID, false))
	assert.ErrorIs(t, store.LockActor(ctx, u.ID), ErrActorInactive)
}

func TestCreateReactionRequiresExistingActor(t *testing.T) {
	db := setupTestDB(t)
	store := NewReactionStore(db)

	_, err := store.CreateReaction(context.Background(), model.KindArticle, uuid.New().String(), "ghost", true)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&model.Reaction{}).Count(&n).Error)
	assert.Zero(t, n)
}
