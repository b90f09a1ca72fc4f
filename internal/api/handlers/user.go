package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"user_api/internal/service"
)

// UserHandler 處理與用戶相關的請求
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 創建一個新的 UserHandler 實例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterInput 定義註冊請求的結構，支援 JSON 與表單
type RegisterInput struct {
	Username string `json:"username" form:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" form:"email" binding:"omitempty,email"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=72"`
}

// Register 處理用戶註冊
func (h *UserHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), input.Username, input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		case errors.Is(err, service.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at most 72 bytes"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ListUsers 列出所有用戶
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetUser 取得單一用戶
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser 刪除用戶
func (h *UserHandler) DeleteUser(c *gin.Context) {
	err := h.userService.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.Status(http.StatusNoContent)
}
