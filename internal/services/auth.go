package services

import (
	"context"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"

	"go.uber.org/zap"
)

// AuthService verifies credentials and enforces the lockout policy.
// Authentication failures are negative results, not errors: the caller
// receives a sentinel AppError it can map to a response envelope, and
// every failure is recorded before returning.
type AuthService struct {
	userRepo    repository.UserRepository
	roleRepo    repository.RoleRepository
	attemptRepo repository.LoginAttemptRepository
	audit       *AuditService
	changes     *ChangeRecorder
	jwtManager  *pkg.JWTManager
	logger      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	attemptRepo repository.LoginAttemptRepository,
	audit *AuditService,
	changes *ChangeRecorder,
	jwtManager *pkg.JWTManager,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		attemptRepo: attemptRepo,
		audit:       audit,
		changes:     changes,
		jwtManager:  jwtManager,
		logger:      logger,
	}
}

// AuthenticatedUser is the result of a successful authentication
type AuthenticatedUser struct {
	User   *models.User
	Role   *models.Role
	Tokens *pkg.TokenPair
}

// Authenticate verifies a username/password pair. Five consecutive
// failures lock the account until an administrator unlocks it; the
// counter is only reset by a successful login or an unlock.
func (s *AuthService) Authenticate(ctx context.Context, username, password, ipAddress, userAgent string) (*AuthenticatedUser, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		s.recordFailure(ctx, username, "", ipAddress, userAgent, "Unknown username")
		return nil, pkg.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.recordFailure(ctx, username, user.ID, ipAddress, userAgent, "Account deactivated")
		return nil, pkg.ErrAccountInactive
	}
	if user.IsLocked {
		s.recordFailure(ctx, username, user.ID, ipAddress, userAgent, "Account locked")
		return nil, pkg.ErrAccountLocked
	}

	if !pkg.VerifyPassword(password, user.PasswordHash) {
		attempts := user.FailedLoginAttempts + 1
		updates := map[string]interface{}{
			"failed_login_attempts": attempts,
		}
		if attempts >= models.LockoutThreshold {
			lockoutEnd := time.Now().UTC().Add(models.LockoutDuration)
			updates["is_locked"] = true
			updates["lockout_end"] = lockoutEnd
			s.logger.Warn("account locked after repeated failures",
				zap.String("username", username),
				zap.Int("attempts", attempts))
		}
		if err := s.userRepo.Update(ctx, user.ID, updates); err != nil {
			s.logger.Error("failed to update login attempt counter",
				zap.String("user_id", user.ID), zap.Error(err))
		}

		s.recordFailure(ctx, username, user.ID, ipAddress, userAgent, "Invalid password")
		return nil, pkg.ErrInvalidCredentials
	}

	role, err := s.roleRepo.GetByID(ctx, user.RoleID)
	if err != nil {
		s.recordFailure(ctx, username, user.ID, ipAddress, userAgent, "Role lookup failed")
		return nil, pkg.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"failed_login_attempts": 0,
		"last_login_date":       now,
		"last_login_ip":         ipAddress,
	}
	if err := s.userRepo.Update(ctx, user.ID, updates); err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}
	user.FailedLoginAttempts = 0
	user.LastLoginDate = &now
	user.LastLoginIP = ipAddress

	sessionID, err := pkg.GenerateSecureToken(16)
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	tokens, err := s.jwtManager.GenerateTokenPair(pkg.TokenSubject{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      role.RoleName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, sessionID)
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	s.recordAttempt(ctx, username, user.ID, ipAddress, userAgent, true, "")
	s.audit.Log(ctx, AuditEvent{
		EventType: models.EventUserLogin,
		Action:    "Login",
		UserID:    user.ID,
		Username:  user.Username,
		RoleName:  role.RoleName,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		SessionID: sessionID,
	})

	return &AuthenticatedUser{User: user, Role: role, Tokens: tokens}, nil
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*pkg.TokenPair, error) {
	tokens, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		return nil, pkg.ErrInvalidToken.WithCause(err)
	}
	return tokens, nil
}

// Logout records the logout event. Issued tokens remain valid until
// natural expiry; this is the accepted stateless-token tradeoff.
func (s *AuthService) Logout(ctx context.Context, actor models.Actor) {
	s.audit.LogForActor(ctx, actor, AuditEvent{
		EventType: models.EventUserLogout,
		Action:    "Logout",
	})
}

// ChangePassword verifies the old password and replaces the hash
func (s *AuthService) ChangePassword(ctx context.Context, actor models.Actor, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}

	if !pkg.VerifyPassword(oldPassword, user.PasswordHash) {
		return pkg.ErrInvalidCredentials
	}
	if len(newPassword) < 8 {
		return pkg.ErrWeakPassword
	}

	hash, err := pkg.HashPassword(newPassword)
	if err != nil {
		return pkg.ErrInternalServer.WithCause(err)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"password_hash":             hash,
		"last_password_change_date": now,
		"must_change_password":      false,
		"modified_by":               actor.UserID,
	}
	if err := s.userRepo.Update(ctx, user.ID, updates); err != nil {
		return err
	}

	// Password material never enters the audit trail; only the event.
	s.audit.LogForActor(ctx, actor, AuditEvent{
		EventType:  "UserPasswordChanged",
		Action:     "Modified",
		EntityType: "User",
		EntityID:   user.ID,
		EntityName: user.Username,
	})

	return nil
}

// LockAccount is an administrative override setting an indefinite lock
func (s *AuthService) LockAccount(ctx context.Context, userID string, actor models.Actor) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	lockoutEnd := time.Now().UTC().Add(models.LockoutDuration)
	before := Snapshot(user)

	updates := map[string]interface{}{
		"is_locked":   true,
		"lockout_end": lockoutEnd,
		"modified_by": actor.UserID,
	}
	if err := s.userRepo.Update(ctx, userID, updates); err != nil {
		return err
	}

	after := *user
	after.IsLocked = true
	after.LockoutEnd = &lockoutEnd

	cs := s.changes.NewChangeSet()
	cs.RecordModified("User", []string{user.ID}, before, Snapshot(&after))
	return cs.Commit(ctx, actor)
}

// UnlockAccount clears the lock flag, the lockout timestamp and the
// failed-attempt counter in a single update
func (s *AuthService) UnlockAccount(ctx context.Context, userID string, actor models.Actor) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	before := Snapshot(user)

	updates := map[string]interface{}{
		"is_locked":             false,
		"lockout_end":           nil,
		"failed_login_attempts": 0,
		"modified_by":           actor.UserID,
	}
	if err := s.userRepo.Update(ctx, userID, updates); err != nil {
		return err
	}

	after := *user
	after.IsLocked = false
	after.LockoutEnd = nil
	after.FailedLoginAttempts = 0

	cs := s.changes.NewChangeSet()
	cs.RecordModified("User", []string{user.ID}, before, Snapshot(&after))
	return cs.Commit(ctx, actor)
}

func (s *AuthService) recordFailure(ctx context.Context, username, userID, ipAddress, userAgent, reason string) {
	s.recordAttempt(ctx, username, userID, ipAddress, userAgent, false, reason)
	s.audit.Log(ctx, AuditEvent{
		EventType:    models.EventUserLoginFailed,
		Action:       "Login",
		UserID:       userID,
		Username:     username,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		Result:       models.AuditResultFailed,
		ErrorMessage: reason,
	})
}

func (s *AuthService) recordAttempt(ctx context.Context, username, userID, ipAddress, userAgent string, success bool, reason string) {
	attempt := &models.LoginAttempt{
		Username:      username,
		UserID:        userID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		IsSuccessful:  success,
		FailureReason: reason,
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt",
			zap.String("username", username), zap.Error(err))
	}
}
