package handlers

import (
	"net/http"
	"strconv"

	"github.com/afrydman/AuditTrail/internal/middleware"
	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/services"

	"github.com/gin-gonic/gin"
)

type FolderHandler struct {
	folderService *services.FolderService
	fileService   *services.FileService
}

func NewFolderHandler(folderService *services.FolderService, fileService *services.FileService) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		fileService:   fileService,
	}
}

// Create adds a folder to the tree
func (h *FolderHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var input services.CreateFolderInput
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

	folder, err := h.folderService.Create(c.Request.Context(), input, actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusCreated, "Folder created", folder)
}

// Get retrieves a folder
func (h *FolderHandler) Get(c *gin.Context) {
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

	folder, err := h.folderService.Get(c.Request.Context(), folderID, actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Folder retrieved", folder)
}

// Roots lists visible root folders
func (h *FolderHandler) Roots(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	roots, err := h.folderService.Roots(c.Request.Context(), actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Root folders retrieved", roots)
}

// Children lists visible subfolders
func (h *FolderHandler) Children(c *gin.Context) {
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

	children, err := h.folderService.Children(c.Request.Context(), folderID, actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Subfolders retrieved", children)
}

// Contents lists the current file versions in a folder
func (h *FolderHandler) Contents(c *gin.Context) {
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

	files, err := h.fileService.FolderContents(c.Request.Context(), folderID, actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}
	if files == nil {
		files = []*models.File{}
	}

	pkg.SuccessResponse(c, http.StatusOK, "Folder contents retrieved", files)
}

// Update modifies folder settings
func (h *FolderHandler) Update(c *gin.Context) {
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

	var input services.UpdateFolderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}

	folder, err := h.folderService.Update(c.Request.Context(), folderID, input, actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Folder updated", folder)
}

// Delete soft-deletes a folder
func (h *FolderHandler) Delete(c *gin.Context) {
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

	if err := h.folderService.Delete(c.Request.Context(), folderID, actor); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Folder deleted", nil)
}

func folderIDParam(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
