package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/blog-reactions/config"
	"github.com/d60-Lab/blog-reactions/internal/cache"
	"github.com/d60-Lab/blog-reactions/internal/ledger"
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

// 压测热点文章：N 个用户并发点赞/点踩，最后核对计数与账本
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	rdb := must(database.InitRedis(cfg.Redis))

	N := envInt("N", 2000)
	CONC := envInt("CONC", 16)
	READS := envInt("READS", 5000)

	reactions := repository.NewReactionStore(db)
	l := ledger.New(repository.NewUnitOfWork(db), reactions)
	counterCache := cache.NewCounterCache(rdb, cfg.Redis.TTL)
	syncer := service.NewCounterSyncer(reactions, counterCache, N)
	stop := syncer.Start(cfg.Workers.CounterSyncers)
	svc := service.NewReactionService(l, counterCache, syncer)

	ctx := context.Background()
	article := model.Article{ID: uuid.New().String(), AuthorID: "bench", Title: "hot"}
	if err := db.Create(&article).Error; err != nil {
		panic(err)
	}

	// 账本只接受已存在的用户
	actors := make([]model.User, N)
	for i := range actors {
		id := uuid.New().String()
		actors[i] = model.User{ID: id, FirstName: "bench", Email: id + "@bench.local", Password: "x", IsActive: true}
	}
	if err := db.CreateInBatches(actors, 500).Error; err != nil {
		panic(err)
	}

	landing := make([]time.Duration, 0, N)
	doneLanding := make(chan struct{})
	landed := make(chan struct{})
	go func() {
		defer close(landed)
		for {
			select {
			case d := <-syncer.Metrics():
				landing = append(landing, d)
			case <-doneLanding:
				return
			}
		}
	}()

	// 每个用户 1/4 概率点踩，1/8 概率随后翻转
	jobs := make(chan int, N)
	for i := 0; i < N; i++ {
		jobs <- i
	}
	close(jobs)
	latCh := make(chan time.Duration, 2*N)
	var failed int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	t0 := time.Now()
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				actor := actors[i].ID
				st := time.Now()
				var err error
				if i%4 == 0 {
					_, err = svc.Dislike(ctx, model.KindArticle, article.ID, actor)
				} else {
					_, err = svc.Like(ctx, model.KindArticle, article.ID, actor)
				}
				latCh <- time.Since(st)
				if err == nil && i%8 == 1 {
					st = time.Now()
					_, err = svc.Dislike(ctx, model.KindArticle, article.ID, actor)
					latCh <- time.Since(st)
				}
				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	writeDur := time.Since(t0)
	close(latCh)
	lat := make([]time.Duration, 0, 2*N)
	for d := range latCh {
		lat = append(lat, d)
	}

	_ = stop(context.Background())
	close(doneLanding)
	<-landed

	// 读路径：缓存命中率
	counterCache.ResetStats()
	reads := make([]time.Duration, 0, READS)
	for i := 0; i < READS; i++ {
		st := time.Now()
		_, _ = svc.Counts(ctx, model.KindArticle, article.ID)
		reads = append(reads, time.Since(st))
	}
	stats := counterCache.Stats()

	stored, counted, ok, err := l.Audit(ctx, model.KindArticle, article.ID)
	if err != nil {
		panic(err)
	}

	fmt.Printf("N=%d CONC=%d driver=%s cache=%v\n", N, CONC, cfg.Database.Driver, rdb != nil)
	fmt.Printf("Ledger writes: ops=%d failed=%d total=%v p50=%v p95=%v p99=%v\n",
		len(lat), failed, writeDur, pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	if len(landing) > 0 {
		fmt.Printf("Cache refresh landing: samples=%d p50=%v p95=%v p99=%v\n",
			len(landing), pct(landing, 0.50), pct(landing, 0.95), pct(landing, 0.99))
	}
	fmt.Printf("Counts reads: n=%d p50=%v p99=%v hits=%d misses=%d\n",
		READS, pct(reads, 0.50), pct(reads, 0.99), stats.Hits, stats.Misses)
	fmt.Printf("Audit: stored=%+v counted=%+v consistent=%v\n", stored, counted, ok)
	if !ok {
		os.Exit(1)
	}
}
