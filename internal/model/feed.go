package model

import "time"

// FeedItem 订阅者时间线中的一篇文章（按 user_id 查询）
type FeedItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;index:idx_feed_user_score,priority:1;uniqueIndex:ux_feed_user_article,priority:1"`
	ArticleID string    `json:"article_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_feed_user_article,priority:2"`
	Score     int64     `json:"score" gorm:"index:idx_feed_user_score,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

func (FeedItem) TableName() string { return "feed_items" }
