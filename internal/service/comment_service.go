package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
)

type CommentService interface {
	Create(ctx context.Context, articleID, authorID, body string) (*model.Comment, error)
	List(ctx context.Context, articleID string, page, pageSize int) ([]*model.Comment, error)
}

type commentService struct {
	articles repository.ArticleRepository
	comments repository.CommentRepository
}

func NewCommentService(articles repository.ArticleRepository, comments repository.CommentRepository) CommentService {
	return &commentService{articles: articles, comments: comments}
}

func (s *commentService) Create(ctx context.Context, articleID, authorID, body string) (*model.Comment, error) {
	if _, err := s.articles.GetByID(ctx, articleID); err != nil {
		return nil, notFound("article", articleID, err)
	}
	c := &model.Comment{
		ID:        uuid.New().String(),
		ArticleID: articleID,
		AuthorID:  authorID,
		Body:      body,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *commentService) List(ctx context.Context, articleID string, page, pageSize int) ([]*model.Comment, error) {
	if _, err := s.articles.GetByID(ctx, articleID); err != nil {
		return nil, notFound("article", articleID, err)
	}
	offset, limit := pageOffset(page, pageSize)
	return s.comments.ListByArticle(ctx, articleID, offset, limit)
}
