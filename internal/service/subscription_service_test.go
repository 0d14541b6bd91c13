package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blog-reactions/internal/repository"
)

func TestSubscribeAndFeed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := newUserService(db)
	author := signup(t, users, "author@example.com")
	r1 := signup(t, users, "r1@example.com")
	r2 := signup(t, users, "r2@example.com")

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	feedRepo := repository.NewFeedRepository(db)
	svc := NewSubscriptionService(userRepo, subRepo, feedRepo)

	assert.ErrorIs(t, svc.Subscribe(ctx, author.ID, author.ID), ErrSubscribeSelf)
	assert.ErrorIs(t, svc.Subscribe(ctx, r1.ID, "missing"), ErrNotFound)
	require.NoError(t, svc.Subscribe(ctx, r1.ID, author.ID))
	require.NoError(t, svc.Subscribe(ctx, r2.ID, author.ID))
	require.NoError(t, svc.Subscribe(ctx, r2.ID, author.ID))

	subs, err := svc.ListSubscribers(ctx, author.ID, 1, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{r1.ID, r2.ID}, subs)

	following, err := svc.ListSubscriptions(ctx, r1.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{author.ID}, following)

	a, err := NewArticleService(db).Publish(ctx, author.ID, "Hello", "world")
	require.NoError(t, err)

	// batchSize 1 强制走分页
	worker := NewFanoutWorker(repository.NewOutboxRepository(db), subRepo, feedRepo, 1, 1, 10, time.Hour)
	n, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, reader := range []string{r1.ID, r2.ID} {
		feed, err := svc.Feed(ctx, reader, 1, 10)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, a.ID, feed[0].ID)
	}

	n, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, svc.Unsubscribe(ctx, r1.ID, author.ID))
	subs, err = svc.ListSubscribers(ctx, author.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{r2.ID}, subs)
}

func TestFanoutWorkerStartStop(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := newUserService(db)
	author := signup(t, users, "author@example.com")
	reader := signup(t, users, "reader@example.com")

	subRepo := repository.NewSubscriptionRepository(db)
	feedRepo := repository.NewFeedRepository(db)
	require.NoError(t, subRepo.Create(ctx, reader.ID, author.ID))

	worker := NewFanoutWorker(repository.NewOutboxRepository(db), subRepo, feedRepo, 2, 100, 10, 10*time.Millisecond)
	stop := worker.Start()

	_, err := NewArticleService(db).Publish(ctx, author.ID, "t", "b")
	require.NoError(t, err)

	select {
	case d := <-worker.Metrics():
		assert.Greater(t, d, time.Duration(0))
	case <-time.After(5 * time.Second):
		t.Fatal("fanout did not run")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, stop(stopCtx))

	feed, err := feedRepo.ListByUser(ctx, reader.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
}

func TestFanoutReclaimsAbandonedEvent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := newUserService(db)
	author := signup(t, users, "author@example.com")
	reader := signup(t, users, "reader@example.com")

	subRepo := repository.NewSubscriptionRepository(db)
	feedRepo := repository.NewFeedRepository(db)
	outbox := repository.NewOutboxRepository(db)
	require.NoError(t, subRepo.Create(ctx, reader.ID, author.ID))

	a, err := NewArticleService(db).Publish(ctx, author.ID, "t", "b")
	require.NoError(t, err)

	// 另一个进程领取后崩溃
	claimed, err := outbox.ClaimPending(ctx, 10, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	worker := NewFanoutWorker(outbox, subRepo, feedRepo, 1, 100, 10, time.Hour, WithLease(time.Minute))
	n, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "claim is still within its lease")

	worker.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	n, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	feed, err := feedRepo.ListByUser(ctx, reader.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, a.ID, feed[0].ID)
}
