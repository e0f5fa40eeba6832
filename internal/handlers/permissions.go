package handlers

import (
	"net/http"

	"github.com/afrydman/AuditTrail/internal/middleware"
	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/services"

	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	permissionService *services.PermissionService
}

func NewPermissionHandler(permissionService *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

// GrantRequest represents a grant or update of a role's permissions on
// a folder
type GrantRequest struct {
	RoleID int64 `json:"roleId" binding:"required"`
	Mask   int   `json:"mask" validate:"permissionmask"`
}

// RevokeRequest carries the revoke reason
type RevokeRequest struct {
	RoleID int64  `json:"roleId" binding:"required"`
	Reason string `json:"reason"`
}

// Grant grants or updates a permission mask for a role on a folder
func (h *PermissionHandler) Grant(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	folderID, err := folderIDParam(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid folder id")
		return
	}

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}
	if errs := pkg.DefaultValidator.Validate(req); errs != nil {
		pkg.ValidationErrorResponse(c, errs)
		return
	}

	err = h.permissionService.GrantOrUpdate(c.Request.Context(), folderID, req.RoleID, models.Permission(req.Mask), actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Permissions granted", nil)
}

// Revoke deactivates a role's permission entry on a folder
func (h *PermissionHandler) Revoke(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	folderID, err := folderIDParam(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid folder id")
		return
	}

	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}

	if err := h.permissionService.Revoke(c.Request.Context(), folderID, req.RoleID, actor, req.Reason); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Permissions revoked", nil)
}

// List returns the active permission entries on a folder
func (h *PermissionHandler) List(c *gin.Context) {
	if _, ok := middleware.ActorFrom(c); !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	folderID, err := folderIDParam(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid folder id")
		return
	}

	entries, err := h.permissionService.ListFolderAccess(c.Request.Context(), folderID)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}
	if entries == nil {
		entries = []*models.FolderAccess{}
	}

	pkg.SuccessResponse(c, http.StatusOK, "Permissions retrieved", entries)
}

// EffectiveResponse reports a user's resolved permissions on a folder
type EffectiveResponse struct {
	FolderID    int64  `json:"folderId"`
	UserID      string `json:"userId"`
	Mask        int    `json:"mask"`
	CanView     bool   `json:"canView"`
	CanDownload bool   `json:"canDownload"`
	CanUpload   bool   `json:"canUpload"`
	CanDelete   bool   `json:"canDelete"`
	CanModify   bool   `json:"canModify"`
	IsAdmin     bool   `json:"isAdmin"`
}

// Effective resolves the caller's permissions on a folder. Pass
// ?userId= to inspect another user; any authenticated caller may do so
// since the answer reveals no more than behavior already would.
func (h *PermissionHandler) Effective(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	folderID, err := folderIDParam(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid folder id")
		return
	}

	userID := c.Query("userId")
	if userID == "" {
		userID = actor.UserID
	}

	mask := h.permissionService.EffectiveFolderPermissions(c.Request.Context(), folderID, userID)

	pkg.SuccessResponse(c, http.StatusOK, "Effective permissions resolved", EffectiveResponse{
		FolderID:    folderID,
		UserID:      userID,
		Mask:        int(mask),
		CanView:     mask.Has(models.PermissionView),
		CanDownload: mask.Has(models.PermissionDownload),
		CanUpload:   mask.Has(models.PermissionUpload),
		CanDelete:   mask.Has(models.PermissionDelete),
		CanModify:   mask.Has(models.PermissionModifyMetadata),
		IsAdmin:     mask.Has(models.PermissionAdmin),
	})
}

// CanDeleteFolder reports whether the caller may remove a folder
func (h *PermissionHandler) CanDeleteFolder(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	folderID, err := folderIDParam(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid folder id")
		return
	}

	allowed := h.permissionService.CanDeleteFolder(c.Request.Context(), folderID, actor.UserID)
	pkg.SuccessResponse(c, http.StatusOK, "Delete permission resolved", gin.H{
		"folderId":  folderID,
		"canDelete": allowed,
	})
}
