package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
)

type ArticleService interface {
	// Publish 在一个事务内写入文章与 outbox 事件
	Publish(ctx context.Context, authorID, title, body string) (*model.Article, error)
	Get(ctx context.Context, id string) (*model.Article, error)
	Browse(ctx context.Context, page, pageSize int) ([]*model.Article, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*model.Article, error)
}

type articleService struct {
	db       *gorm.DB
	articles repository.ArticleRepository
}

func NewArticleService(db *gorm.DB) ArticleService {
	return &articleService{db: db, articles: repository.NewArticleRepository(db)}
}

func (s *articleService) Publish(ctx context.Context, authorID, title, body string) (*model.Article, error) {
	now := time.Now()
	article := &model.Article{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewArticleRepository(tx).Create(ctx, article); err != nil {
			return err
		}
		event := &model.Outbox{
			ID:        uuid.New().String(),
			ArticleID: article.ID,
			AuthorID:  authorID,
			CreatedAt: now,
			Status:    model.OutboxPending,
		}
		return repository.NewOutboxRepository(tx).Create(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (s *articleService) Get(ctx context.Context, id string) (*model.Article, error) {
	a, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("article", id, err)
	}
	return a, nil
}

func (s *articleService) Browse(ctx context.Context, page, pageSize int) ([]*model.Article, error) {
	offset, limit := pageOffset(page, pageSize)
	return s.articles.List(ctx, offset, limit)
}

func (s *articleService) Search(ctx context.Context, query string, page, pageSize int) ([]*model.Article, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	offset, limit := pageOffset(page, pageSize)
	return s.articles.Search(ctx, terms, offset, limit)
}
