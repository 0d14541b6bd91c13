package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, int64, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetGroup(ctx context.Context, id, group string) error
	UpdateProfile(ctx context.Context, id, firstName, lastName, email string) error
	UpdatePassword(ctx context.Context, id, hash string) error

	CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error
	// ConsumeResetToken 校验令牌未过期后写入新密码，并作废该用户的全部令牌；
	// 令牌不存在或已过期返回 ErrNotFound
	ConsumeResetToken(ctx context.Context, token string, now time.Time, hash string) (string, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var (
		users []model.User
		total int64
	)
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	if err := db.Order("created_at ASC, id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, translate(err)
	}
	return users, total, nil
}

func (r *userRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, id, map[string]interface{}{"is_active": active})
}

func (r *userRepository) SetGroup(ctx context.Context, id, group string) error {
	return r.update(ctx, id, map[string]interface{}{"user_group": group})
}

func (r *userRepository) UpdateProfile(ctx context.Context, id, firstName, lastName, email string) error {
	return r.update(ctx, id, map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
		"email":      email,
	})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, id, map[string]interface{}{"password": hash})
}

func (r *userRepository) update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *userRepository) CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error {
	return translate(r.db.WithContext(ctx).Create(token).Error)
}

func (r *userRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time, hash string) (string, error) {
	var userID string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []model.PasswordResetToken
		if err := tx.Where("token = ?", token).Limit(1).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 || rows[0].IsExpired(now) {
			return fmt.Errorf("reset token: %w", ErrNotFound)
		}
		userID = rows[0].UserID
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Update("password", hash).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&model.PasswordResetToken{}).Error
	})
	if err != nil {
		return "", translate(err)
	}
	return userID, nil
}
