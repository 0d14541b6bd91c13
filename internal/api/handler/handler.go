package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-reactions/internal/ledger"
	"github.com/d60-Lab/blog-reactions/internal/service"
	"github.com/d60-Lab/blog-reactions/pkg/response"
)

// Handler 聚合各业务服务，方法即路由处理函数
type Handler struct {
	users     service.UserService
	articles  service.ArticleService
	comments  service.CommentService
	subs      service.SubscriptionService
	reactions service.ReactionService
}

func NewHandler(
	users service.UserService,
	articles service.ArticleService,
	comments service.CommentService,
	subs service.SubscriptionService,
	reactions service.ReactionService,
) *Handler {
	return &Handler{users: users, articles: articles, comments: comments, subs: subs, reactions: reactions}
}

// Users 供路由层的 RequireActive 使用
func (h *Handler) Users() service.UserService { return h.users }

// fail 把业务错误映射为 HTTP 状态码
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidKind),
		errors.Is(err, service.ErrSubscribeSelf),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidGroup),
		errors.Is(err, service.ErrInvalidResetToken):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrAnonymousActor),
		errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrUserBlocked),
		errors.Is(err, ledger.ErrActorBlocked):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ledger.ErrConflict),
		errors.Is(err, ledger.ErrConstraintViolation),
		errors.Is(err, service.ErrEmailTaken):
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

func pageBody(page, pageSize int, list interface{}) gin.H {
	return gin.H{"page": page, "page_size": pageSize, "list": list}
}
