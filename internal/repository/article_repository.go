package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

// ArticleRepository 文章仓储
type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	GetByID(ctx context.Context, id string) (*model.Article, error)
	List(ctx context.Context, offset, limit int) ([]*model.Article, error)
	// Search 每个词都需命中标题、正文或作者姓名之一
	Search(ctx context.Context, terms []string, offset, limit int) ([]*model.Article, error)
}

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository { return &articleRepository{db: db} }

func (r *articleRepository) Create(ctx context.Context, article *model.Article) error {
	return translate(r.db.WithContext(ctx).Create(article).Error)
}

func (r *articleRepository) GetByID(ctx context.Context, id string) (*model.Article, error) {
	var a model.Article
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *articleRepository) List(ctx context.Context, offset, limit int) ([]*model.Article, error) {
	var res []*model.Article
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, translate(err)
}

func (r *articleRepository) Search(ctx context.Context, terms []string, offset, limit int) ([]*model.Article, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Article{}).
		Select("articles.*").
		Joins("JOIN users ON users.id = articles.author_id")
	for _, t := range terms {
		like := "%" + escapeLike(t) + "%"
		q = q.Where(
			"articles.title LIKE ? ESCAPE '\\' OR articles.body LIKE ? ESCAPE '\\' OR users.first_name LIKE ? ESCAPE '\\' OR users.last_name LIKE ? ESCAPE '\\'",
			like, like, like, like,
		)
	}
	var res []*model.Article
	err := q.Order("articles.created_at DESC").Offset(offset).Limit(limit).Find(&res).Error
	return res, translate(err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
