package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/blog-reactions/internal/cache"
	"github.com/d60-Lab/blog-reactions/internal/ledger"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
)

func newLedger(db *gorm.DB) *ledger.Ledger {
	return ledger.New(repository.NewUnitOfWork(db), repository.NewReactionStore(db))
}

func seedArticle(t *testing.T, db *gorm.DB) string {
	t.Helper()
	a := &model.Article{ID: uuid.New().String(), AuthorID: "author", Title: "t"}
	require.NoError(t, db.Create(a).Error)
	return a.ID
}

func TestReactionServiceSyncsCache(t *testing.T) {
	db := setupTestDB(t)
	c := setupTestCache(t)
	ctx := context.Background()
	id := seedArticle(t, db)
	u1, u2 := seedActor(t, db), seedActor(t, db)

	syncer := NewCounterSyncer(repository.NewReactionStore(db), c, 16)
	stop := syncer.Start(1)
	svc := NewReactionService(newLedger(db), c, syncer)

	res, err := svc.Like(ctx, model.KindArticle, id, u1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.LikeCount)
	_, err = svc.Dislike(ctx, model.KindArticle, id, u2)
	require.NoError(t, err)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, stop(stopCtx))

	cached, ok := c.Get(ctx, model.KindArticle, id)
	require.True(t, ok)
	assert.Equal(t, model.Counters{LikeCount: 1, DislikeCount: 1}, cached)

	state, err := svc.State(ctx, model.KindArticle, id, u2)
	require.NoError(t, err)
	assert.Equal(t, model.StateDisliked, state)

	state, err = svc.State(ctx, model.KindArticle, id, "")
	require.NoError(t, err)
	assert.Equal(t, model.StateNone, state)
}

func TestReactionServiceWithoutSyncerInvalidates(t *testing.T) {
	db := setupTestDB(t)
	c := setupTestCache(t)
	ctx := context.Background()
	id := seedArticle(t, db)
	u1 := seedActor(t, db)
	svc := NewReactionService(newLedger(db), c, nil)

	counts, err := svc.Counts(ctx, model.KindArticle, id)
	require.NoError(t, err)
	assert.Equal(t, model.Counters{}, counts)
	_, ok := c.Get(ctx, model.KindArticle, id)
	require.True(t, ok, "miss should fill the cache")

	_, err = svc.Like(ctx, model.KindArticle, id, u1)
	require.NoError(t, err)
	_, ok = c.Get(ctx, model.KindArticle, id)
	assert.False(t, ok, "write should drop the stale entry")

	counts, err = svc.Counts(ctx, model.KindArticle, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.LikeCount)

	_, err = svc.Counts(ctx, model.KindArticle, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestReactionServiceNoCache(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := seedArticle(t, db)
	u1 := seedActor(t, db)
	svc := NewReactionService(newLedger(db), nil, nil)

	_, err := svc.Like(ctx, model.KindArticle, id, u1)
	require.NoError(t, err)
	counts, err := svc.Counts(ctx, model.KindArticle, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.LikeCount)
}

func TestCounterSyncerDropsWhenFull(t *testing.T) {
	db := setupTestDB(t)
	syncer := NewCounterSyncer(repository.NewReactionStore(db), cache.NewCounterCache(nil, 0), 1)

	dropped := testutil.ToFloat64(counterSyncDropped)
	assert.True(t, syncer.Enqueue(model.KindArticle, "a1"))
	assert.False(t, syncer.Enqueue(model.KindArticle, "a2"))
	assert.Equal(t, 1, syncer.QueueLen())
	assert.Equal(t, dropped+1, testutil.ToFloat64(counterSyncDropped))
}

func TestReactionOpsMetric(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := seedArticle(t, db)
	u1 := seedActor(t, db)
	svc := NewReactionService(newLedger(db), nil, nil)

	changed := reactionOpsTotal.WithLabelValues("articles", "like", "changed")
	noop := reactionOpsTotal.WithLabelValues("articles", "like", "noop")
	invalid := reactionOpsTotal.WithLabelValues("invalid", "like", "error")
	c0, n0, i0 := testutil.ToFloat64(changed), testutil.ToFloat64(noop), testutil.ToFloat64(invalid)

	_, err := svc.Like(ctx, model.KindArticle, id, u1)
	require.NoError(t, err)
	_, err = svc.Like(ctx, model.KindArticle, id, u1)
	require.NoError(t, err)
	_, err = svc.Like(ctx, model.SubjectKind("widgets"), id, u1)
	require.ErrorIs(t, err, ledger.ErrInvalidKind)

	assert.Equal(t, c0+1, testutil.ToFloat64(changed))
	assert.Equal(t, n0+1, testutil.ToFloat64(noop))
	assert.Equal(t, i0+1, testutil.ToFloat64(invalid))
}

func TestReactionWriteRejectsInFlightFill(t *testing.T) {
	db := setupTestDB(t)
	c := setupTestCache(t)
	ctx := context.Background()
	id := seedArticle(t, db)
	u1 := seedActor(t, db)
	svc := NewReactionService(newLedger(db), c, nil)

	// 读者在点赞提交前读库
	version := c.Version(ctx, model.KindArticle, id)
	before, err := newLedger(db).Counters(ctx, model.KindArticle, id)
	require.NoError(t, err)

	_, err = svc.Like(ctx, model.KindArticle, id, u1)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Fill(ctx, model.KindArticle, id, before, version), cache.ErrStaleFill)
	counts, err := svc.Counts(ctx, model.KindArticle, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.LikeCount)
	cached, ok := c.Get(ctx, model.KindArticle, id)
	require.True(t, ok)
	assert.EqualValues(t, 1, cached.LikeCount)
}
