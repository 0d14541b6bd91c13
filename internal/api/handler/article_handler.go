package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-reactions/internal/api/middleware"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/pkg/response"
)

type publishRequest struct {
	Title string `json:"title" binding:"required,max=200"`
	Body  string `json:"body" binding:"required"`
}

// ArticleDetail 文章详情，计数取自缓存
type ArticleDetail struct {
	*model.Article
	State model.ReactionState `json:"state"`
}

// PublishArticle 发布文章，订阅者时间线异步写入
// @Summary 发布文章
// @Tags 文章
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body publishRequest true "文章内容"
// @Success 201 {object} response.Response{data=model.Article}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/articles [post]
func (h *Handler) PublishArticle(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	a, err := h.articles.Publish(c.Request.Context(), middleware.UserID(c), req.Title, req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, a)
}

// GetArticle 文章详情
// @Summary 文章详情
// @Tags 文章
// @Produce json
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=ArticleDetail}
// @Failure 404 {object} response.Response
// @Router /api/v1/articles/{id} [get]
func (h *Handler) GetArticle(c *gin.Context) {
	ctx := c.Request.Context()
	a, err := h.articles.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if counts, err := h.reactions.Counts(ctx, model.KindArticle, a.ID); err == nil {
		a.LikeCount, a.DislikeCount = counts.LikeCount, counts.DislikeCount
	}
	state, err := h.reactions.State(ctx, model.KindArticle, a.ID, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ArticleDetail{Article: a, State: state})
}

// ListArticles 按发布时间倒序
// @Summary 文章列表
// @Tags 文章
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/articles [get]
func (h *Handler) ListArticles(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.articles.Browse(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, pageBody(page, pageSize, list))
}

// SearchArticles 每个关键词都需命中标题、正文或作者姓名
// @Summary 搜索文章
// @Tags 文章
// @Produce json
// @Param q query string true "关键词，空格分隔"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Router /api/v1/articles/search [get]
func (h *Handler) SearchArticles(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.articles.Search(c.Request.Context(), c.Query("q"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, pageBody(page, pageSize, list))
}
