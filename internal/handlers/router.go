package handlers

import (
	"github.com/afrydman/AuditTrail/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers for route registration
type Handlers struct {
	Auth       *AuthHandler
	Folder     *FolderHandler
	File       *FileHandler
	Permission *PermissionHandler
	Audit      *AuditHandler
	User       *UserHandler
}

// RegisterRoutes wires all routes onto the engine. Login is throttled
// per IP; everything else sits behind token auth, and account and
// audit administration additionally require the Administrator role.
func RegisterRoutes(r *gin.Engine, h *Handlers, auth *middleware.AuthMiddleware, loginLimiter *middleware.RateLimiter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.POST("/auth/login", loginLimiter.Limit(), h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.RefreshToken)

	authed := api.Group("")
	authed.Use(auth.RequireAuth())
	{
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.POST("/auth/change-password", h.Auth.ChangePassword)

		authed.GET("/folders", h.Folder.Roots)
		authed.POST("/folders", h.Folder.Create)
		authed.GET("/folders/:id", h.Folder.Get)
		authed.PATCH("/folders/:id", h.Folder.Update)
		authed.DELETE("/folders/:id", h.Folder.Delete)
		authed.GET("/folders/:id/children", h.Folder.Children)
		authed.GET("/folders/:id/files", h.Folder.Contents)
		authed.GET("/folders/:id/can-delete", h.Permission.CanDeleteFolder)

		authed.POST("/files", h.File.Upload)
		authed.GET("/files/:id", h.File.Get)
		authed.GET("/files/:id/download", h.File.Download)
		authed.GET("/files/:id/versions", h.File.Versions)
		authed.PATCH("/files/:id", h.File.UpdateMetadata)
		authed.DELETE("/files/:id", h.File.Delete)

		authed.GET("/folders/:id/permissions/effective", h.Permission.Effective)

		admin := authed.Group("")
		admin.Use(auth.RequireAdmin())
		{
			admin.GET("/folders/:id/permissions", h.Permission.List)
			admin.POST("/folders/:id/permissions", h.Permission.Grant)
			admin.DELETE("/folders/:id/permissions", h.Permission.Revoke)

			admin.GET("/audit", h.Audit.Search)
			admin.GET("/audit/users/:id", h.Audit.ByUser)
			admin.GET("/audit/entities/:id", h.Audit.ByEntity)

			admin.GET("/users", h.User.List)
			admin.POST("/users", h.User.Create)
			admin.GET("/users/:id", h.User.Get)
			admin.POST("/users/:id/deactivate", h.User.Deactivate)
			admin.POST("/users/:id/reactivate", h.User.Reactivate)
			admin.POST("/users/:id/role", h.User.AssignRole)
			admin.POST("/users/:id/lock", h.User.Lock)
			admin.POST("/users/:id/unlock", h.User.Unlock)
			admin.GET("/roles", h.User.Roles)
		}
	}
}
