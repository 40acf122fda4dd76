// internal/api/user_handlers.go
package api

import (
	"net/http"

	"github.com/Corphon/AICodeReviewer/internal/auth"
	"github.com/Corphon/AICodeReviewer/internal/models"
	"github.com/gin-gonic/gin"
)

// 用户接口沿用前端已有的响应结构 {success, message, user}

// Signup 注册
func (h *Handler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "username, email and password are required", err.Error())
		return
	}

	user, err := h.UserService.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.Response.FromError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    user.Public(),
	})
}

// Login 登录并签发 token
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "email and password are required", err.Error())
		return
	}

	user, err := h.UserService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.Response.FromError(c, err, "")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.IsAdmin, h.Tokens)
	if err != nil {
		h.Response.InternalError(c, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    user.Public(),
		"token":   token,
	})
}

// ListUsers 返回全部用户（不含密码）
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.UserService.ListUsers(c.Request.Context())
	if err != nil {
		h.Response.FromError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, users)
}

// DeleteUser 删除用户
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.UserService.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.Response.FromError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted successfully",
	})
}

// CurrentUser 返回 token 对应的用户
func (h *Handler) CurrentUser(c *gin.Context) {
	userID, authed := GetUserFromContext(c)
	if !authed {
		h.Response.Unauthorized(c, "Authentication required")
		return
	}

	user, err := h.UserService.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.Response.FromError(c, err, "")
		return
	}
	h.Response.Success(c, user.Public())
}
