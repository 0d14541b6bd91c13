package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

// FeedRepository 订阅者时间线
type FeedRepository interface {
	// Insert 批量写入，(user, article) 重复时忽略
	Insert(ctx context.Context, items []model.FeedItem) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Article, error)
}

type feedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) FeedRepository { return &feedRepository{db: db} }

func (r *feedRepository) Insert(ctx context.Context, items []model.FeedItem) error {
	if len(items) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&items).Error)
}

func (r *feedRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Article, error) {
	var res []*model.Article
	err := r.db.WithContext(ctx).
		Model(&model.Article{}).
		Select("articles.*").
		Joins("JOIN feed_items ON feed_items.article_id = articles.id").
		Where("feed_items.user_id = ?", userID).
		Order("feed_items.score DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, translate(err)
}
