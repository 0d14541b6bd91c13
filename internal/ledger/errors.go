package ledger

import (
	"errors"
	"fmt"

	"github.com/d60-Lab/blog-reactions/internal/repository"
)

var (
	// ErrNotFound 对象或用户不存在，不重试
	ErrNotFound = errors.New("subject or actor not found")
	// ErrConflict 并发修改，自动重试后仍失败
	ErrConflict = errors.New("concurrent reaction conflict")
	// ErrConstraintViolation 查重之后唯一索引仍然冲突
	ErrConstraintViolation = errors.New("reaction already exists for subject and actor")
	// ErrInvalidKind 不支持的对象类型
	ErrInvalidKind = errors.New("invalid subject kind")
	// ErrAnonymousActor 调用方未带用户身份
	ErrAnonymousActor = errors.New("actor required")
	// ErrActorBlocked 用户已被管理员封禁，不写账本
	ErrActorBlocked = errors.New("actor is blocked")
)

func retryable(err error) bool {
	return errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrDuplicate)
}

// classify 把仓储层错误映射为账本错误
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrActorInactive):
		return fmt.Errorf("%w: %w", ErrActorBlocked, err)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrCounterUnderflow):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
