package handlers

import (
	"net/http"
	"time"

	"github.com/afrydman/AuditTrail/internal/middleware"
	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the login envelope. Failures are reported inside the
// body with HTTP 200 and a single generic message, so the response
// never reveals whether the username exists or the account is locked.
type LoginResponse struct {
	IsSuccess          bool         `json:"isSuccess"`
	ErrorMessage       string       `json:"errorMessage,omitempty"`
	Token              string       `json:"token,omitempty"`
	RefreshToken       string       `json:"refreshToken,omitempty"`
	ExpiresAt          *time.Time   `json:"expiresAt,omitempty"`
	User               *models.User `json:"user,omitempty"`
	MustChangePassword bool         `json:"mustChangePassword,omitempty"`
}

// ChangePasswordRequest represents change password request payload
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// RefreshTokenRequest represents refresh token request payload
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Login authenticates a user and returns tokens
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}

	result, err := h.authService.Authenticate(
		c.Request.Context(),
		req.Username,
		req.Password,
		c.ClientIP(),
		c.GetHeader("User-Agent"),
	)
	if err != nil {
		c.JSON(http.StatusOK, LoginResponse{
			IsSuccess:    false,
			ErrorMessage: pkg.ErrInvalidCredentials.Message,
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		IsSuccess:          true,
		Token:              result.Tokens.AccessToken,
		RefreshToken:       result.Tokens.RefreshToken,
		ExpiresAt:          &result.Tokens.ExpiresAt,
		User:               result.User,
		MustChangePassword: result.User.MustChangePassword,
	})
}

// RefreshToken exchanges a refresh token for a new pair
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}

	tokens, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Token refreshed", tokens)
}

// Logout records the logout event
func (h *AuthHandler) Logout(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	h.authService.Logout(c.Request.Context(), actor)
	pkg.SuccessResponse(c, http.StatusOK, "Logged out", nil)
}

// ChangePassword replaces the caller's password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), actor, req.OldPassword, req.NewPassword); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Password changed", nil)
}
