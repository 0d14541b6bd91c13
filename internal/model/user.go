package model

import "time"

const (
	GroupAdmin  = "admin"
	GroupClient = "client"
)

// User 用户；Password 保存 bcrypt 哈希
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FirstName string    `json:"first_name" gorm:"type:varchar(72)"`
	LastName  string    `json:"last_name" gorm:"type:varchar(72)"`
	Email     string    `json:"email" gorm:"type:varchar(72);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(72);not null"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	Group     string    `json:"group,omitempty" gorm:"column:user_group;type:varchar(32)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Group == GroupAdmin }

// ValidGroup 可分配的用户组
func ValidGroup(g string) bool { return g == GroupAdmin || g == GroupClient }

// PasswordResetToken 管理员签发的一次性重置令牌，使用或过期后作废
type PasswordResetToken struct {
	Token     string    `json:"token" gorm:"primaryKey;type:varchar(72)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

func (t *PasswordResetToken) IsExpired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
