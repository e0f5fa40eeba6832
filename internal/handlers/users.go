package handlers

import (
	"net/http"

	"github.com/afrydman/AuditTrail/internal/middleware"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler exposes account administration. All routes behind it are
// registered with the admin-only middleware.
type UserHandler struct {
	userService *services.UserService
	authService *services.AuthService
}

func NewUserHandler(userService *services.UserService, authService *services.AuthService) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
	}
}

// Create provisions an account
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var input services.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}
	if errs := pkg.DefaultValidator.Validate(input); errs != nil {
		pkg.ValidationErrorResponse(c, errs)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), input, actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusCreated, "User created", user)
}

// List retrieves accounts, paginated
func (h *UserHandler) List(c *gin.Context) {
	params := pkg.NewPaginationParams(c)

	users, total, err := h.userService.List(c.Request.Context(), params)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.PaginatedResponse(c, "Users retrieved", pkg.NewPaginationResult(users, total, params))
}

// Get retrieves one account
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "User retrieved", user)
}

// Deactivate disables an account
func (h *UserHandler) Deactivate(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	if err := h.userService.Deactivate(c.Request.Context(), c.Param("id"), actor); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "User deactivated", nil)
}

// Reactivate re-enables an account
func (h *UserHandler) Reactivate(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	if err := h.userService.Reactivate(c.Request.Context(), c.Param("id"), actor); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "User reactivated", nil)
}

// AssignRoleRequest carries the new role for an account
type AssignRoleRequest struct {
	RoleID int64 `json:"roleId" binding:"required"`
}

// AssignRole moves an account to a different role
func (h *UserHandler) AssignRole(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}

	if err := h.userService.AssignRole(c.Request.Context(), c.Param("id"), req.RoleID, actor); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Role assigned", nil)
}

// Lock applies an administrative lock to an account
func (h *UserHandler) Lock(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	if err := h.authService.LockAccount(c.Request.Context(), c.Param("id"), actor); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Account locked", nil)
}

// Unlock clears an account lock and its failed-attempt counter
func (h *UserHandler) Unlock(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	if err := h.authService.UnlockAccount(c.Request.Context(), c.Param("id"), actor); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Account unlocked", nil)
}

// Roles lists the active roles
func (h *UserHandler) Roles(c *gin.Context) {
	roles, err := h.userService.Roles(c.Request.Context())
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Roles retrieved", roles)
}
