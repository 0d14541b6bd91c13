package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscriberID, authorID string) error
	Delete(ctx context.Context, subscriberID, authorID string) error
	Exists(ctx context.Context, subscriberID, authorID string) (bool, error)
	ListSubscriptions(ctx context.Context, subscriberID string, offset, limit int) ([]*model.Subscription, error)
	ListSubscribers(ctx context.Context, authorID string, offset, limit int) ([]*model.Subscription, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, subscriberID, authorID string) error {
	s := &model.Subscription{ID: uuid.New().String(), SubscriberID: subscriberID, AuthorID: authorID}
	// 幂等：重复订阅不报错
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(s).Error)
}

func (r *subscriptionRepository) Delete(ctx context.Context, subscriberID, authorID string) error {
	return translate(r.db.WithContext(ctx).
		Where("subscriber_id = ? AND author_id = ?", subscriberID, authorID).
		Delete(&model.Subscription{}).Error)
}

func (r *subscriptionRepository) Exists(ctx context.Context, subscriberID, authorID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("subscriber_id = ? AND author_id = ?", subscriberID, authorID).
		Count(&cnt).Error; err != nil {
		return false, translate(err)
	}
	return cnt > 0, nil
}

func (r *subscriptionRepository) ListSubscriptions(ctx context.Context, subscriberID string, offset, limit int) ([]*model.Subscription, error) {
	var res []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, translate(err)
}

func (r *subscriptionRepository) ListSubscribers(ctx context.Context, authorID string, offset, limit int) ([]*model.Subscription, error) {
	var res []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, translate(err)
}
