package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-reactions/internal/api/middleware"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/service"
	"github.com/d60-Lab/blog-reactions/pkg/response"
)

type signupRequest struct {
	FirstName string `json:"first_name" binding:"required,max=72"`
	LastName  string `json:"last_name" binding:"max=72"`
	Email     string `json:"email" binding:"required,email,max=72"`
	Password  string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type statusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type profileRequest struct {
	FirstName string `json:"first_name" binding:"required,max=72"`
	LastName  string `json:"last_name" binding:"max=72"`
	Email     string `json:"email" binding:"required,email,max=72"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type groupRequest struct {
	Group string `json:"group" binding:"required,oneof=admin client"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Signup 注册
// @Summary 用户注册
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body signupRequest true "注册信息"
// @Success 201 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/users/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	u, err := h.users.Signup(c.Request.Context(), service.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, u)
}

// Login 登录，返回 Bearer 令牌
// @Summary 用户登录
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response{data=loginResponse}
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/users/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	token, u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, loginResponse{Token: token, User: u})
}

// GetUser 用户资料
// @Summary 用户资料
// @Tags 用户
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, u)
}

// SetUserStatus 管理员封禁/解封
// @Summary 封禁或解封用户
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param request body statusRequest true "是否启用"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/admin/users/{id}/status [put]
func (h *Handler) SetUserStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := h.users.SetActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "active": *req.Active})
}

// Me 当前登录用户
// @Summary 我的资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.User}
// @Failure 401 {object} response.Response
// @Router /api/v1/users/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, u)
}

// UpdateProfile 修改姓名与邮箱
// @Summary 修改资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body profileRequest true "资料"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/users/me [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), middleware.UserID(c), service.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, u)
}

// ChangePassword 校验旧密码并两次确认新密码
// @Summary 修改密码
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body changePasswordRequest true "新旧密码"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/users/me/password [put]
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	err := h.users.ChangePassword(c.Request.Context(), middleware.UserID(c), req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"changed": true})
}

// ResetPassword 使用管理员签发的重置令牌设置新密码
// @Summary 重置密码
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body resetPasswordRequest true "令牌与新密码"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/users/password/reset [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"reset": true})
}

// ListUsers 管理员查看全部用户
// @Summary 用户列表
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)
	users, total, err := h.users.List(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	body := pageBody(page, pageSize, users)
	body["total"] = total
	response.Success(c, body)
}

// SetUserGroup 管理员修改用户组
// @Summary 修改用户组
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param request body groupRequest true "用户组"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/admin/users/{id}/group [put]
func (h *Handler) SetUserGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := h.users.SetGroup(c.Request.Context(), c.Param("id"), req.Group); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "group": req.Group})
}

// IssueResetToken 管理员为用户签发密码重置令牌
// @Summary 签发重置令牌
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 201 {object} response.Response{data=model.PasswordResetToken}
// @Failure 404 {object} response.Response
// @Router /api/v1/admin/users/{id}/reset-token [post]
func (h *Handler) IssueResetToken(c *gin.Context) {
	tok, err := h.users.IssueResetToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, tok)
}
