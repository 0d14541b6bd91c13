package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-reactions/internal/api/middleware"
	"github.com/d60-Lab/blog-reactions/pkg/response"
)

type commentRequest struct {
	Body string `json:"body" binding:"required,max=4000"`
}

// CreateComment 评论文章
// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Param request body commentRequest true "评论内容"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/articles/{id}/comments [post]
func (h *Handler) CreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	cm, err := h.comments.Create(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, cm)
}

// ListComments 文章下的评论，按时间正序
// @Summary 评论列表
// @Tags 评论
// @Produce json
// @Param id path string true "文章ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/articles/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.comments.List(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, pageBody(page, pageSize, list))
}
