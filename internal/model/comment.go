package model

import "time"

// Comment 文章评论，与文章共用同一套点赞逻辑
type Comment struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ArticleID    string    `json:"article_id" gorm:"type:varchar(36);index:idx_comment_article;not null"`
	AuthorID     string    `json:"author_id" gorm:"type:varchar(36);not null"`
	Body         string    `json:"body" gorm:"type:text;not null"`
	LikeCount    int64     `json:"like_count" gorm:"not null;default:0"`
	DislikeCount int64     `json:"dislike_count" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"index:idx_comment_article"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }
