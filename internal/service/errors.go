package service

import (
	"errors"
	"fmt"

	"github.com/d60-Lab/blog-reactions/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrSubscribeSelf      = errors.New("cannot subscribe to self")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrEmptyQuery         = errors.New("empty search query")
	ErrWrongPassword      = errors.New("invalid old password")
	ErrPasswordMismatch   = errors.New("new passwords do not match")
	ErrInvalidGroup       = errors.New("invalid user group")
	ErrInvalidResetToken  = errors.New("reset token invalid or expired")
)

func notFound(what, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return err
}

func pageOffset(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return (page - 1) * pageSize, pageSize
}
