package services

import (
	"context"
	"strings"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService manages accounts and roles. All operations here are
// administrative; callers must already hold the Administrator role.
type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	changes  *ChangeRecorder
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	changes *ChangeRecorder,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		changes:  changes,
		logger:   logger,
	}
}

// CreateUserInput carries the fields for a new account
type CreateUserInput struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	RoleID    int64  `json:"roleId" validate:"required"`
}

// Create provisions an account. New accounts must change their password
// on first login.
func (s *UserService) Create(ctx context.Context, input CreateUserInput, actor models.Actor) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, pkg.ErrDuplicateUsername
	} else if !isNotFound(err, pkg.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, pkg.ErrDuplicateEmail
	} else if !isNotFound(err, pkg.ErrUserNotFound) {
		return nil, err
	}

	if _, err := s.roleRepo.GetByID(ctx, input.RoleID); err != nil {
		return nil, err
	}

	if len(input.Password) < 8 {
		return nil, pkg.ErrWeakPassword
	}
	hash, err := pkg.HashPassword(input.Password)
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:                 uuid.NewString(),
		Username:           username,
		Email:              email,
		PasswordHash:       hash,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		RoleID:             input.RoleID,
		IsActive:           true,
		MustChangePassword: true,
	}
	user.CreatedAt = now
	user.CreatedBy = actor.UserID

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("created_by", actor.UserID))

	cs := s.changes.NewChangeSet()
	cs.RecordCreated("User", []string{user.ID}, Snapshot(user))
	if err := cs.Commit(ctx, actor); err != nil {
		return nil, err
	}

	return user, nil
}

// Get retrieves an account by id
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// List retrieves accounts, paginated
func (s *UserService) List(ctx context.Context, params *pkg.PaginationParams) ([]*models.User, int64, error) {
	params.Validate()
	return s.userRepo.List(ctx, params)
}

// Deactivate disables an account without removing it. The row survives
// so historical audit entries keep resolving.
func (s *UserService) Deactivate(ctx context.Context, userID string, actor models.Actor) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}

	before := Snapshot(user)
	now := time.Now().UTC()

	updates := map[string]interface{}{
		"is_active":   false,
		"modified_at": now,
		"modified_by": actor.UserID,
	}
	if err := s.userRepo.Update(ctx, userID, updates); err != nil {
		return err
	}

	after := *user
	after.IsActive = false
	after.ModifiedAt = &now
	after.ModifiedBy = actor.UserID

	s.logger.Info("user deactivated",
		zap.String("user_id", userID),
		zap.String("deactivated_by", actor.UserID))

	cs := s.changes.NewChangeSet()
	cs.RecordModified("User", []string{userID}, before, Snapshot(&after))
	return cs.Commit(ctx, actor)
}

// Reactivate re-enables a deactivated account
func (s *UserService) Reactivate(ctx context.Context, userID string, actor models.Actor) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsActive {
		return nil
	}

	before := Snapshot(user)
	now := time.Now().UTC()

	updates := map[string]interface{}{
		"is_active":   true,
		"modified_at": now,
		"modified_by": actor.UserID,
	}
	if err := s.userRepo.Update(ctx, userID, updates); err != nil {
		return err
	}

	after := *user
	after.IsActive = true
	after.ModifiedAt = &now
	after.ModifiedBy = actor.UserID

	cs := s.changes.NewChangeSet()
	cs.RecordModified("User", []string{userID}, before, Snapshot(&after))
	return cs.Commit(ctx, actor)
}

// AssignRole moves an account to a different role. Takes effect on the
// user's next permission resolution.
func (s *UserService) AssignRole(ctx context.Context, userID string, roleID int64, actor models.Actor) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		return err
	}
	if user.RoleID == roleID {
		return nil
	}

	before := Snapshot(user)
	now := time.Now().UTC()

	updates := map[string]interface{}{
		"role_id":     roleID,
		"modified_at": now,
		"modified_by": actor.UserID,
	}
	if err := s.userRepo.Update(ctx, userID, updates); err != nil {
		return err
	}

	after := *user
	after.RoleID = roleID
	after.ModifiedAt = &now
	after.ModifiedBy = actor.UserID

	s.logger.Info("role assigned",
		zap.String("user_id", userID),
		zap.Int64("role_id", roleID),
		zap.String("assigned_by", actor.UserID))

	cs := s.changes.NewChangeSet()
	cs.RecordModified("User", []string{userID}, before, Snapshot(&after))
	return cs.Commit(ctx, actor)
}

// Roles lists the active roles
func (s *UserService) Roles(ctx context.Context) ([]*models.Role, error) {
	return s.roleRepo.List(ctx)
}

// EnsureSeedRoles creates the built-in roles when missing. Runs at
// startup; existing roles are left untouched.
func (s *UserService) EnsureSeedRoles(ctx context.Context) error {
	seed := []string{models.RoleAdministrator, "Manager", "User", "ReadOnly"}

	for _, name := range seed {
		if _, err := s.roleRepo.GetByName(ctx, name); err == nil {
			continue
		} else if !isNotFound(err, pkg.ErrRoleNotFound) {
			return err
		}

		role := &models.Role{RoleName: name, IsActive: true}
		role.CreatedAt = time.Now().UTC()
		role.CreatedBy = models.System.UserID
		if err := s.roleRepo.Create(ctx, role); err != nil {
			return err
		}
		s.logger.Info("seed role created", zap.String("role", name))
	}
	return nil
}
