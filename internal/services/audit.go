package services

import (
	"context"
	"strings"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"

	"go.uber.org/zap"
)

// Fields that must never appear in audit value snapshots
var sensitiveFields = map[string]struct{}{
	"PasswordHash": {},
	"PasswordSalt": {},
	"SessionToken": {},
	"RefreshToken": {},
}

// IsSensitiveField reports whether a field is excluded from audit
// snapshots
func IsSensitiveField(name string) bool {
	_, ok := sensitiveFields[name]
	return ok
}

// AuditService is the single writer of the audit trail. Entries are
// immutable once written.
type AuditService struct {
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// AuditEvent carries the fields of one audit entry to be written
type AuditEvent struct {
	EventType    string
	Action       string
	UserID       string
	Username     string
	RoleName     string
	EntityType   string
	EntityID     string
	EntityName   string
	OldValue     string
	NewValue     string
	IPAddress    string
	UserAgent    string
	SessionID    string
	Result       string
	ErrorMessage string
	Duration     time.Duration
}

// Log writes a new immutable audit entry and returns its id. Result
// defaults to Success when unset.
func (s *AuditService) Log(ctx context.Context, event AuditEvent) (string, error) {
	result := event.Result
	if result == "" {
		result = models.AuditResultSuccess
	}

	entry := &models.AuditEntry{
		EventType:     event.EventType,
		EventCategory: DeriveEventCategory(event.EventType),
		Timestamp:     time.Now().UTC(),
		UserID:        event.UserID,
		Username:      event.Username,
		RoleName:      event.RoleName,
		IPAddress:     event.IPAddress,
		UserAgent:     event.UserAgent,
		SessionID:     event.SessionID,
		EntityType:    event.EntityType,
		EntityID:      event.EntityID,
		EntityName:    event.EntityName,
		Action:        event.Action,
		OldValue:      event.OldValue,
		NewValue:      event.NewValue,
		Result:        result,
		ErrorMessage:  event.ErrorMessage,
		DurationMS:    event.Duration.Milliseconds(),
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed",
			zap.String("event_type", event.EventType),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
		return "", err
	}

	return entry.ID, nil
}

// LogForActor writes an entry attributed to the given actor
func (s *AuditService) LogForActor(ctx context.Context, actor models.Actor, event AuditEvent) (string, error) {
	event.UserID = actor.UserID
	event.Username = actor.Username
	event.RoleName = actor.RoleName
	event.IPAddress = actor.IPAddress
	event.UserAgent = actor.UserAgent
	event.SessionID = actor.SessionID
	return s.Log(ctx, event)
}

// Search retrieves entries matching the filter, newest first. Any
// combination of empty filter fields is valid and widens the result.
func (s *AuditService) Search(ctx context.Context, filter repository.AuditFilter, params *pkg.PaginationParams) ([]*models.AuditEntry, int64, error) {
	params.Validate()
	return s.auditRepo.Search(ctx, filter, params)
}

// ByUser retrieves a user's entries within the trailing window. A
// non-positive days value falls back to the default 30-day window.
func (s *AuditService) ByUser(ctx context.Context, userID string, days int) ([]*models.AuditEntry, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.auditRepo.GetByUser(ctx, userID, since)
}

// ByEntity retrieves all entries referencing an entity
func (s *AuditService) ByEntity(ctx context.Context, entityID string) ([]*models.AuditEntry, error) {
	return s.auditRepo.GetByEntity(ctx, entityID)
}

// DeriveEventCategory maps an event type to its category by prefix
func DeriveEventCategory(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "User"), strings.HasPrefix(eventType, "Login"):
		return models.AuditCategoryUser
	case strings.HasPrefix(eventType, "File"), strings.HasPrefix(eventType, "Document"):
		return models.AuditCategoryDocument
	case strings.HasPrefix(eventType, "System"):
		return models.AuditCategorySystem
	default:
		return models.AuditCategoryGeneral
	}
}
