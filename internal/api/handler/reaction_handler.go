package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-reactions/internal/api/middleware"
	"github.com/d60-Lab/blog-reactions/internal/ledger"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/pkg/response"
)

const ctxSubjectKind = "subject_kind"

// BindKind 为固定前缀的路由（/articles/...）注入对象类型
func BindKind(kind model.SubjectKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxSubjectKind, kind)
		c.Next()
	}
}

func subjectKind(c *gin.Context) model.SubjectKind {
	if v, ok := c.Get(ctxSubjectKind); ok {
		if k, ok := v.(model.SubjectKind); ok {
			return k
		}
	}
	// 未知类型交给账本返回 ErrInvalidKind
	if k, err := model.ParseSubjectKind(c.Param("kind")); err == nil {
		return k
	}
	return model.SubjectKind(c.Param("kind"))
}

// ReactionView 对象计数与当前用户的表态
type ReactionView struct {
	Kind      model.SubjectKind   `json:"kind"`
	SubjectID string              `json:"subject_id"`
	State     model.ReactionState `json:"state"`
	model.Counters
}

// Like 点赞；重复点赞不改变计数，已点踩则翻转
// @Summary 点赞
// @Tags 点赞
// @Produce json
// @Security BearerAuth
// @Param kind path string true "对象类型" Enums(articles, comments)
// @Param id path string true "对象ID"
// @Success 200 {object} response.Response{data=ledger.Result}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/{kind}/like/{id} [post]
func (h *Handler) Like(c *gin.Context) {
	res, err := h.reactions.Like(c.Request.Context(), subjectKind(c), c.Param("id"), middleware.UserID(c))
	h.reacted(c, res, err)
}

// Dislike 点踩
// @Summary 点踩
// @Tags 点赞
// @Produce json
// @Security BearerAuth
// @Param kind path string true "对象类型" Enums(articles, comments)
// @Param id path string true "对象ID"
// @Success 200 {object} response.Response{data=ledger.Result}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/{kind}/dislike/{id} [post]
func (h *Handler) Dislike(c *gin.Context) {
	res, err := h.reactions.Dislike(c.Request.Context(), subjectKind(c), c.Param("id"), middleware.UserID(c))
	h.reacted(c, res, err)
}

func (h *Handler) reacted(c *gin.Context, res *ledger.Result, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}

// Reactions 查询计数；带令牌时附带当前用户的表态
// @Summary 查询点赞计数
// @Tags 点赞
// @Produce json
// @Param kind path string true "对象类型" Enums(articles, comments)
// @Param id path string true "对象ID"
// @Success 200 {object} response.Response{data=ReactionView}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/{kind}/reactions/{id} [get]
func (h *Handler) Reactions(c *gin.Context) {
	ctx := c.Request.Context()
	kind, id := subjectKind(c), c.Param("id")
	counts, err := h.reactions.Counts(ctx, kind, id)
	if err != nil {
		fail(c, err)
		return
	}
	state, err := h.reactions.State(ctx, kind, id, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ReactionView{Kind: kind, SubjectID: id, State: state, Counters: counts})
}
