package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/afrydman/AuditTrail/internal/middleware"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"
	"github.com/afrydman/AuditTrail/internal/services"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// Search queries the audit trail. All filters are optional and
// combine; dates are RFC 3339.
func (h *AuditHandler) Search(c *gin.Context) {
	if _, ok := middleware.ActorFrom(c); !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	filter := repository.AuditFilter{
		UserID:     c.Query("userId"),
		EventType:  c.Query("eventType"),
		EntityType: c.Query("entityType"),
	}

	if v := c.Query("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			pkg.BadRequestResponse(c, "startDate must be RFC 3339")
			return
		}
		filter.StartDate = &t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			pkg.BadRequestResponse(c, "endDate must be RFC 3339")
			return
		}
		filter.EndDate = &t
	}

	params := pkg.NewPaginationParams(c)
	entries, total, err := h.auditService.Search(c.Request.Context(), filter, params)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.PaginatedResponse(c, "Audit entries retrieved", pkg.NewPaginationResult(entries, total, params))
}

// ByUser retrieves a user's recent audit entries
func (h *AuditHandler) ByUser(c *gin.Context) {
	if _, ok := middleware.ActorFrom(c); !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	days := 0
	if v := c.Query("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			days = parsed
		}
	}

	entries, err := h.auditService.ByUser(c.Request.Context(), c.Param("id"), days)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Audit entries retrieved", entries)
}

// ByEntity retrieves the full history of one entity
func (h *AuditHandler) ByEntity(c *gin.Context) {
	if _, ok := middleware.ActorFrom(c); !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	entries, err := h.auditService.ByEntity(c.Request.Context(), c.Param("id"))
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Audit entries retrieved", entries)
}
