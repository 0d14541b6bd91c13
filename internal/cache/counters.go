package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

const (
	fieldLike    = "like"
	fieldDislike = "dislike"
)

// CounterCache keeps a read copy of subject counters in Redis. A nil cache, or one built
// without a client, behaves as an always-miss cache.
type CounterCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCounterCache builds a cache using the provided client; ttl <= 0 means keys never expire.
func NewCounterCache(client *redis.Client, ttl time.Duration) *CounterCache {
	return &CounterCache{client: client, ttl: ttl}
}

func (c *CounterCache) enabled() bool { return c != nil && c.client != nil }

// ErrStaleFill is returned by Fill when a write committed after the caller read the database.
var ErrStaleFill = errors.New("counter cache: write committed during fill")

func key(kind model.SubjectKind, subjectID string) string {
	return fmt.Sprintf("counters:%s:%s", kind, subjectID)
}

// versionKey counts committed writes for a subject.
func versionKey(kind model.SubjectKind, subjectID string) string {
	return fmt.Sprintf("counters:ver:%s:%s", kind, subjectID)
}

// Get returns the cached counters; ok is false on miss or on any Redis error.
func (c *CounterCache) Get(ctx context.Context, kind model.SubjectKind, subjectID string) (model.Counters, bool) {
	if !c.enabled() {
		return model.Counters{}, false
	}
	vals, err := c.client.HGetAll(ctx, key(kind, subjectID)).Result()
	if err != nil || len(vals) == 0 {
		c.misses.Add(1)
		return model.Counters{}, false
	}
	like, err1 := strconv.ParseInt(vals[fieldLike], 10, 64)
	dislike, err2 := strconv.ParseInt(vals[fieldDislike], 10, 64)
	if err1 != nil || err2 != nil {
		c.misses.Add(1)
		return model.Counters{}, false
	}
	c.hits.Add(1)
	return model.Counters{LikeCount: like, DislikeCount: dislike}, true
}

// Set overwrites both fields in one round trip.
func (c *CounterCache) Set(ctx context.Context, kind model.SubjectKind, subjectID string, counters model.Counters) error {
	if !c.enabled() {
		return nil
	}
	k := key(kind, subjectID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, k, fieldLike, counters.LikeCount, fieldDislike, counters.DislikeCount)
	if c.ttl > 0 {
		pipe.Expire(ctx, k, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Version reads the write version. Take it before loading counters from the database
// and hand it to Fill; a missing key reads as zero.
func (c *CounterCache) Version(ctx context.Context, kind model.SubjectKind, subjectID string) int64 {
	if !c.enabled() {
		return 0
	}
	v, err := c.client.Get(ctx, versionKey(kind, subjectID)).Int64()
	if err != nil {
		return 0
	}
	return v
}

// Fill stores counters loaded from the database unless a write was recorded since
// version was read, in which case it returns ErrStaleFill and leaves the cache alone.
func (c *CounterCache) Fill(ctx context.Context, kind model.SubjectKind, subjectID string, counters model.Counters, version int64) error {
	if !c.enabled() {
		return nil
	}
	vk, k := versionKey(kind, subjectID), key(kind, subjectID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return ErrStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, fieldLike, counters.LikeCount, fieldDislike, counters.DislikeCount)
			if c.ttl > 0 {
				pipe.Expire(ctx, k, c.ttl)
			}
			return nil
		})
		return err
	}, vk)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStaleFill
	}
	return err
}

// Touch records a committed write so that fills started before it are rejected.
func (c *CounterCache) Touch(ctx context.Context, kind model.SubjectKind, subjectID string) error {
	return c.bump(ctx, kind, subjectID, false)
}

// Invalidate records a committed write and drops the cached counters.
func (c *CounterCache) Invalidate(ctx context.Context, kind model.SubjectKind, subjectID string) error {
	return c.bump(ctx, kind, subjectID, true)
}

func (c *CounterCache) bump(ctx context.Context, kind model.SubjectKind, subjectID string, drop bool) error {
	if !c.enabled() {
		return nil
	}
	vk := versionKey(kind, subjectID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, vk)
	if c.ttl > 0 {
		pipe.Expire(ctx, vk, c.ttl)
	}
	if drop {
		pipe.Del(ctx, key(kind, subjectID))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Stats summarises cache lookups since the last reset.
type Stats struct {
	Hits   int64
	Misses int64
}

func (c *CounterCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *CounterCache) ResetStats() {
	if c == nil {
		return
	}
	c.hits.Store(0)
	c.misses.Store(0)
}
