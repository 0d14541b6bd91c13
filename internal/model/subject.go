package model

import "fmt"

// SubjectKind 可被点赞/点踩的对象类型，取值即路由中的 <kind> 段
type SubjectKind string

const (
	KindArticle SubjectKind = "articles"
	KindComment SubjectKind = "comments"
)

// Table 返回该类型计数所在的表
func (k SubjectKind) Table() string {
	switch k {
	case KindArticle:
		return Article{}.TableName()
	case KindComment:
		return Comment{}.TableName()
	}
	return ""
}

func (k SubjectKind) Valid() bool { return k.Table() != "" }

// ParseSubjectKind 同时接受单复数形式
func ParseSubjectKind(s string) (SubjectKind, error) {
	switch s {
	case "articles", "article":
		return KindArticle, nil
	case "comments", "comment":
		return KindComment, nil
	}
	return "", fmt.Errorf("unknown subject kind %q", s)
}

// Counters 冗余在对象行上的点赞/点踩计数
type Counters struct {
	LikeCount    int64 `json:"like_count"`
	DislikeCount int64 `json:"dislike_count"`
}
