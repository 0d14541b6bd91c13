package model

import "time"

// Reaction 点赞账本的一行；(subject_kind, subject_id, actor_id) 唯一，actor_id 外键指向 users
type Reaction struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SubjectKind SubjectKind `json:"subject_kind" gorm:"type:varchar(16);not null;uniqueIndex:ux_reaction_subject_actor,priority:1"`
	SubjectID   string      `json:"subject_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_reaction_subject_actor,priority:2"`
	ActorID     string      `json:"actor_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_reaction_subject_actor,priority:3;index:idx_reaction_actor"`
	IsLike      bool        `json:"is_like" gorm:"not null"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Actor *User `json:"-" gorm:"foreignKey:ActorID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Reaction) TableName() string { return "reactions" }

// ReactionState 某个 (对象, 用户) 对的状态
type ReactionState string

const (
	StateNone     ReactionState = "none"
	StateLiked    ReactionState = "liked"
	StateDisliked ReactionState = "disliked"
)

// StateOf nil 表示尚未表态
func StateOf(r *Reaction) ReactionState {
	switch {
	case r == nil:
		return StateNone
	case r.IsLike:
		return StateLiked
	default:
		return StateDisliked
	}
}
