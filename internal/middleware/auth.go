package middleware

import (
	"strings"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const actorKey = "actor"

// AuthMiddleware validates bearer tokens and attaches the acting user
// to the request context
type AuthMiddleware struct {
	jwtManager *pkg.JWTManager
	userRepo   repository.UserRepository
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(jwtManager *pkg.JWTManager, userRepo repository.UserRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// RequireAuth validates the JWT and sets the actor for downstream
// handlers. The account's live status is rechecked on every request so
// deactivation and lockout take effect before token expiry.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			pkg.UnauthorizedResponse(c, "Authorization header required")
			c.Abort()
			return
		}

		token := pkg.ExtractTokenFromHeader(authHeader)
		if token == "" {
			pkg.UnauthorizedResponse(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			if appErr, ok := pkg.IsAppError(err); ok && appErr.Code == pkg.ErrTokenExpired.Code {
				pkg.ErrorResponseFromAppError(c, pkg.ErrTokenExpired)
			} else {
				pkg.UnauthorizedResponse(c, "Invalid token")
			}
			c.Abort()
			return
		}

		if claims.TokenType != pkg.TokenTypeAccess {
			pkg.UnauthorizedResponse(c, "Invalid token type")
			c.Abort()
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			m.logger.Warn("token subject not found",
				zap.String("user_id", claims.UserID), zap.Error(err))
			pkg.UnauthorizedResponse(c, "User not found")
			c.Abort()
			return
		}
		if !user.IsActive {
			pkg.ForbiddenResponse(c, "Account has been deactivated")
			c.Abort()
			return
		}
		if user.IsLocked {
			pkg.ForbiddenResponse(c, "Account is locked")
			c.Abort()
			return
		}

		c.Set(actorKey, models.Actor{
			UserID:    user.ID,
			Username:  user.Username,
			RoleName:  claims.Role,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
			SessionID: claims.SessionID,
		})

		c.Next()
	}
}

// RequireAdmin restricts a route to users whose role is named
// Administrator
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			pkg.UnauthorizedResponse(c, "Authentication required")
			c.Abort()
			return
		}
		if !strings.EqualFold(actor.RoleName, models.RoleAdministrator) {
			pkg.ErrorResponseFromAppError(c, pkg.ErrAdminRequired)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFrom extracts the acting user set by RequireAuth
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}
