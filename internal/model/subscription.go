package model

import "time"

// Subscription 订阅关系（subscriber 订阅 author）
type Subscription struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	SubscriberID string `gorm:"type:varchar(36);not null;index:idx_sub_subscriber;uniqueIndex:ux_sub_pair,priority:1"`
	AuthorID     string `gorm:"type:varchar(36);not null;index:idx_sub_author;uniqueIndex:ux_sub_pair,priority:2"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Subscription) TableName() string { return "subscriptions" }
