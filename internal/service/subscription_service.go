package service

import (
	"context"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
)

// SubscriptionService 作者订阅与订阅者时间线
type SubscriptionService interface {
	Subscribe(ctx context.Context, subscriberID, authorID string) error
	Unsubscribe(ctx context.Context, subscriberID, authorID string) error
	ListSubscriptions(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	ListSubscribers(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	Feed(ctx context.Context, userID string, page, pageSize int) ([]*model.Article, error)
}

type subscriptionService struct {
	users repository.UserRepository
	subs  repository.SubscriptionRepository
	feed  repository.FeedRepository
}

func NewSubscriptionService(users repository.UserRepository, subs repository.SubscriptionRepository, feed repository.FeedRepository) SubscriptionService {
	return &subscriptionService{users: users, subs: subs, feed: feed}
}

func (s *subscriptionService) Subscribe(ctx context.Context, subscriberID, authorID string) error {
	if subscriberID == authorID {
		return ErrSubscribeSelf
	}
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		return notFound("user", authorID, err)
	}
	return s.subs.Create(ctx, subscriberID, authorID)
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, subscriberID, authorID string) error {
	return s.subs.Delete(ctx, subscriberID, authorID)
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	offset, limit := pageOffset(page, pageSize)
	items, err := s.subs.ListSubscriptions(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.AuthorID
	}
	return res, nil
}

func (s *subscriptionService) ListSubscribers(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	offset, limit := pageOffset(page, pageSize)
	items, err := s.subs.ListSubscribers(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.SubscriberID
	}
	return res, nil
}

func (s *subscriptionService) Feed(ctx context.Context, userID string, page, pageSize int) ([]*model.Article, error) {
	offset, limit := pageOffset(page, pageSize)
	return s.feed.ListByUser(ctx, userID, offset, limit)
}
