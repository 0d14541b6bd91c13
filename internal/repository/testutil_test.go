package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/blog-reactions/config"
	"github.com/d60-Lab/blog-reactions/internal/model"
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

func seedUser(t *testing.T, db *gorm.DB, first, last string) *model.User {
	t.Helper()
	id := uuid.New().String()
	u := &model.User{ID: id, FirstName: first, LastName: last, Email: id[:8] + "@example.com", Password: "p", IsActive: true}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedArticle(t *testing.T, db *gorm.DB, authorID, title, body string) *model.Article {
	t.Helper()
	a := &model.Article{ID: uuid.New().String(), AuthorID: authorID, Title: title, Body: body}
	require.NoError(t, NewArticleRepository(db).Create(context.Background(), a))
	return a
}
