package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-reactions/internal/api/middleware"
	"github.com/d60-Lab/blog-reactions/pkg/response"
)

// Subscribe 订阅作者（幂等）
// @Summary 订阅作者
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Param author_id path string true "作者ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/subscriptions/{author_id} [post]
func (h *Handler) Subscribe(c *gin.Context) {
	if err := h.subs.Subscribe(c.Request.Context(), middleware.UserID(c), c.Param("author_id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Unsubscribe 取消订阅
// @Summary 取消订阅
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Param author_id path string true "作者ID"
// @Success 200 {object} response.Response
// @Router /api/v1/subscriptions/{author_id} [delete]
func (h *Handler) Unsubscribe(c *gin.Context) {
	if err := h.subs.Unsubscribe(c.Request.Context(), middleware.UserID(c), c.Param("author_id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ListSubscriptions 某用户订阅的作者
// @Summary 订阅列表
// @Tags 订阅
// @Produce json
// @Param id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{id}/subscriptions [get]
func (h *Handler) ListSubscriptions(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.subs.ListSubscriptions(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, pageBody(page, pageSize, list))
}

// ListSubscribers 某作者的订阅者
// @Summary 订阅者列表
// @Tags 订阅
// @Produce json
// @Param id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{id}/subscribers [get]
func (h *Handler) ListSubscribers(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.subs.ListSubscribers(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, pageBody(page, pageSize, list))
}

// Feed 当前用户的订阅时间线
// @Summary 订阅时间线
// @Tags 订阅
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.subs.Feed(c.Request.Context(), middleware.UserID(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, pageBody(page, pageSize, list))
}
