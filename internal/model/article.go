package model

import "time"

// Article 文章；计数列只由点赞账本写入
type Article struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID     string    `json:"author_id" gorm:"type:varchar(36);index:idx_article_author;not null"`
	Title        string    `json:"title" gorm:"type:varchar(200);not null"`
	Body         string    `json:"body" gorm:"type:text"`
	LikeCount    int64     `json:"like_count" gorm:"not null;default:0"`
	DislikeCount int64     `json:"dislike_count" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Article) TableName() string { return "articles" }
