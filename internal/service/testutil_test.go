package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/blog-reactions/config"
	"github.com/d60-Lab/blog-reactions/internal/cache"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
	"github.com/d60-Lab/blog-reactions/pkg/auth"
	"github.com/d60-Lab/blog-reactions/pkg/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func setupTestCache(t *testing.T) *cache.CounterCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewCounterCache(client, time.Minute)
}

func newUserService(db *gorm.DB) UserService {
	return NewUserService(repository.NewUserRepository(db), auth.NewTokenManager("test-secret", "test", time.Hour))
}

// seedActor 直接落库一个活跃用户，跳过密码哈希
func seedActor(t *testing.T, db *gorm.DB) string {
	t.Helper()
	id := uuid.New().String()
	require.NoError(t, db.Create(&model.User{ID: id, FirstName: "Ada", Email: id + "@example.com", Password: "x", IsActive: true}).Error)
	return id
}

func signup(t *testing.T, svc UserService, email string) *model.User {
	t.Helper()
	u, err := svc.Signup(context.Background(), SignupInput{FirstName: "Ada", LastName: "Lovelace", Email: email, Password: "secret123"})
	require.NoError(t, err)
	return u
}
