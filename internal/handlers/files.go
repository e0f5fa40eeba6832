package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/afrydman/AuditTrail/internal/middleware"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/services"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// Upload stores a document, creating a new version if the name already
// exists in the folder
func (h *FileHandler) Upload(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	folderID, err := strconv.ParseInt(c.PostForm("folderId"), 10, 64)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid folder id")
		return
	}

	formFile, header, err := c.Request.FormFile("file")
	if err != nil {
		pkg.BadRequestResponse(c, "Missing file upload")
		return
	}
	defer formFile.Close()

	file, err := h.fileService.Upload(c.Request.Context(), services.UploadInput{
		FolderID:    folderID,
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Description: c.PostForm("description"),
		Body:        formFile,
	}, actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusCreated, "File uploaded", file)
}

// Get retrieves file metadata
func (h *FileHandler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	file, err := h.fileService.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "File retrieved", file)
}

// Download streams a document body
func (h *FileHandler) Download(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	file, body, err := h.fileService.Download(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Length", strconv.FormatInt(file.Size, 10))

	if _, err := io.Copy(c.Writer, body); err != nil {
		// Headers are already sent; nothing left but to drop the
		// connection.
		c.Abort()
	}
}

// Versions lists all versions of a logical file
func (h *FileHandler) Versions(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	versions, err := h.fileService.Versions(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "File versions retrieved", versions)
}

// UpdateMetadata modifies file metadata
func (h *FileHandler) UpdateMetadata(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var input services.UpdateMetadataInput
	if err := c.ShouldBindJSON(&input); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "validation", Message: err.Error()},
		})
		return
	}

	file, err := h.fileService.UpdateMetadata(c.Request.Context(), c.Param("id"), input, actor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "File metadata updated", file)
}

// DeleteFileRequest carries the mandatory delete reason
type DeleteFileRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Delete soft-deletes a file version with a reason
func (h *FileHandler) Delete(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req DeleteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.ValidationErrorResponse(c, pkg.ValidationErrors{
			{Field: "reason", Message: "A delete reason is required"},
		})
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), c.Param("id"), req.Reason, actor); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "File deleted", nil)
}
