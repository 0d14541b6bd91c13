package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/blog-reactions/config"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
	"github.com/d60-Lab/blog-reactions/internal/service"
	"github.com/d60-Lab/blog-reactions/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// 一个作者、N 个订阅者，发布 POSTS 篇文章，统计发布事务与扇出落地耗时
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	N := envInt("N", 20000)
	POSTS := envInt("POSTS", 100)
	WORKERS := envInt("WORKERS", cfg.Workers.FanoutWorkers)
	BATCH := envInt("BATCH", 1000)
	CLAIM := envInt("CLAIM", 64)

	ctx := context.Background()
	subs := repository.NewSubscriptionRepository(db)
	feed := repository.NewFeedRepository(db)
	articles := service.NewArticleService(db)

	author := model.User{ID: uuid.New().String(), FirstName: "bench", Email: "author-" + uuid.NewString()[:8] + "@example.com", Password: "p", IsActive: true}
	if err := db.Create(&author).Error; err != nil {
		panic(err)
	}
	readers := make([]model.User, N)
	rows := make([]model.Subscription, N)
	for i := range readers {
		id := uuid.New().String()
		readers[i] = model.User{ID: id, FirstName: "r", Email: id[:8] + "-" + strconv.Itoa(i) + "@example.com", Password: "p", IsActive: true}
		rows[i] = model.Subscription{ID: uuid.New().String(), SubscriberID: id, AuthorID: author.ID, CreatedAt: time.Now()}
	}
	if err := db.CreateInBatches(&readers, 1000).Error; err != nil {
		panic(err)
	}
	if err := db.CreateInBatches(&rows, 1000).Error; err != nil {
		panic(err)
	}

	worker := service.NewFanoutWorker(repository.NewOutboxRepository(db), subs, feed, WORKERS, BATCH, CLAIM, 20*time.Millisecond)
	stop := worker.Start()
	defer stop(context.Background())

	pubs := make([]time.Duration, 0, POSTS)
	for i := 0; i < POSTS; i++ {
		st := time.Now()
		if _, err := articles.Publish(ctx, author.ID, fmt.Sprintf("hello %d", i), "bench"); err != nil {
			panic(err)
		}
		pubs = append(pubs, time.Since(st))
	}

	land := make([]time.Duration, 0, POSTS)
	timeout := time.After(2 * time.Minute)
collect:
	for len(land) < POSTS {
		select {
		case d := <-worker.Metrics():
			land = append(land, d)
		case <-timeout:
			fmt.Printf("timeout waiting for fanout: got=%d want=%d\n", len(land), POSTS)
			break collect
		}
	}

	fmt.Printf("N=%d POSTS=%d WORKERS=%d BATCH=%d CLAIM=%d\n", N, POSTS, WORKERS, BATCH, CLAIM)
	fmt.Printf("Publish tx latency: p50=%v p95=%v p99=%v\n", pct(pubs, 0.50), pct(pubs, 0.95), pct(pubs, 0.99))
	fmt.Printf("Fanout landing (outbox->done): samples=%d p50=%v p95=%v p99=%v\n", len(land), pct(land, 0.50), pct(land, 0.95), pct(land, 0.99))

	if len(readers) > 0 {
		st := time.Now()
		list, err := feed.ListByUser(ctx, readers[0].ID, 0, 50)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Feed read (reader0, limit=50): %v, rows=%d\n", time.Since(st), len(list))
	}
}
