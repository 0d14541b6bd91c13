package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/repository"
	"github.com/d60-Lab/blog-reactions/pkg/auth"
	"github.com/d60-Lab/blog-reactions/pkg/logger"
)

const defaultResetTTL = time.Hour

type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type ProfileInput struct {
	FirstName string
	LastName  string
	Email     string
}

// UserService 注册、登录、个人资料与管理员操作
type UserService interface {
	Signup(ctx context.Context, in SignupInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, in ProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword, confirm string) error

	List(ctx context.Context, page, pageSize int) ([]model.User, int64, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetGroup(ctx context.Context, id, group string) error
	// IssueResetToken 由管理员签发，交给用户后在 ResetPassword 中使用
	IssueResetToken(ctx context.Context, id string) (*model.PasswordResetToken, error)
	ResetPassword(ctx context.Context, token, newPassword, confirm string) error

	// BootstrapAdmin 把配置中的管理员邮箱对应的已有账号提升为管理员
	BootstrapAdmin(ctx context.Context) error
}

type UserOption func(*userService)

// WithAdminEmail 该邮箱注册即为管理员
func WithAdminEmail(email string) UserOption {
	return func(s *userService) { s.adminEmail = normalizeEmail(email) }
}

func WithResetTTL(ttl time.Duration) UserOption {
	return func(s *userService) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

type userService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	adminEmail string
	resetTTL   time.Duration
	now        func() time.Time
}

func NewUserService(users repository.UserRepository, tokens *auth.TokenManager, opts ...UserOption) UserService {
	s := &userService{users: users, tokens: tokens, resetTTL: defaultResetTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *userService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:        uuid.New().String(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     normalizeEmail(in.Email),
		Password:  hash,
		IsActive:  true,
		Group:     model.GroupClient,
	}
	if s.adminEmail != "" && u.Email == s.adminEmail {
		u.Group = model.GroupAdmin
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !auth.VerifyPassword(u.Password, password) {
		return "", nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return "", nil, ErrUserBlocked
	}
	token, err := s.tokens.Issue(u.ID, u.Group)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*model.User, error) {
	err := s.users.UpdateProfile(ctx, id, in.FirstName, in.LastName, normalizeEmail(in.Email))
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return s.Get(ctx, id)
}

func (s *userService) ChangePassword(ctx context.Context, id, oldPassword, newPassword, confirm string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(u.Password, oldPassword) {
		return ErrWrongPassword
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return notFound("user", id, s.users.UpdatePassword(ctx, id, hash))
}

func (s *userService) List(ctx context.Context, page, pageSize int) ([]model.User, int64, error) {
	offset, limit := pageOffset(page, pageSize)
	return s.users.List(ctx, offset, limit)
}

func (s *userService) SetActive(ctx context.Context, id string, active bool) error {
	return notFound("user", id, s.users.SetActive(ctx, id, active))
}

func (s *userService) SetGroup(ctx context.Context, id, group string) error {
	if !model.ValidGroup(group) {
		return ErrInvalidGroup
	}
	return notFound("user", id, s.users.SetGroup(ctx, id, group))
}

func (s *userService) IssueResetToken(ctx context.Context, id string) (*model.PasswordResetToken, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	now := s.now()
	tok := &model.PasswordResetToken{
		Token:     uuid.New().String(),
		UserID:    id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTTL),
	}
	if err := s.users.CreateResetToken(ctx, tok); err != nil {
		return nil, notFound("user", id, err)
	}
	return tok, nil
}

func (s *userService) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.users.ConsumeResetToken(ctx, token, s.now(), hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	return nil
}

func (s *userService) BootstrapAdmin(ctx context.Context) error {
	if s.adminEmail == "" {
		return nil
	}
	u, err := s.users.GetByEmail(ctx, s.adminEmail)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Info("admin account not registered yet", zap.String("email", s.adminEmail))
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		return nil
	}
	if err := s.users.SetGroup(ctx, u.ID, model.GroupAdmin); err != nil {
		return err
	}
	logger.Info("promoted admin account", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}
