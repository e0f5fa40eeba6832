package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"
	"github.com/afrydman/AuditTrail/internal/services"

	"github.com/gin-gonic/gin"
)

// Minimal in-memory repositories, just enough to drive the auth flow
// through the real service stack.

type stubUserRepo struct {
	users map[string]*models.User
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, pkg.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pkg.ErrUserNotFound
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pkg.ErrUserNotFound
}

func (r *stubUserRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	u, ok := r.users[id]
	if !ok {
		return pkg.ErrUserNotFound
	}
	for key, value := range updates {
		switch key {
		case "failed_login_attempts":
			u.FailedLoginAttempts = value.(int)
		case "is_locked":
			u.IsLocked = value.(bool)
		case "lockout_end":
			if value == nil {
				u.LockoutEnd = nil
			} else if ts, ok := value.(time.Time); ok {
				u.LockoutEnd = &ts
			}
		case "last_login_date":
			ts := value.(time.Time)
			u.LastLoginDate = &ts
		case "last_login_ip":
			u.LastLoginIP = value.(string)
		}
	}
	return nil
}

func (r *stubUserRepo) List(ctx context.Context, params *pkg.PaginationParams) ([]*models.User, int64, error) {
	return nil, 0, nil
}

type stubRoleRepo struct {
	roles map[int64]*models.Role
}

func (r *stubRoleRepo) Create(ctx context.Context, role *models.Role) error {
	r.roles[role.ID] = role
	return nil
}

func (r *stubRoleRepo) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, pkg.ErrRoleNotFound
	}
	return role, nil
}

func (r *stubRoleRepo) GetByName(ctx context.Context, name string) (*models.Role, error) {
	for _, role := range r.roles {
		if strings.EqualFold(role.RoleName, name) {
			return role, nil
		}
	}
	return nil, pkg.ErrRoleNotFound
}

func (r *stubRoleRepo) List(ctx context.Context) ([]*models.Role, error) {
	return nil, nil
}

type stubAttemptRepo struct {
	attempts []*models.LoginAttempt
}

func (r *stubAttemptRepo) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *stubAttemptRepo) CountRecentFailures(ctx context.Context, username string, since time.Time) (int64, error) {
	return 0, nil
}

type stubAuditRepo struct {
	entries []*models.AuditEntry
}

func (r *stubAuditRepo) Create(ctx context.Context, entry *models.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubAuditRepo) Search(ctx context.Context, filter repository.AuditFilter, params *pkg.PaginationParams) ([]*models.AuditEntry, int64, error) {
	return nil, 0, nil
}

func (r *stubAuditRepo) GetByUser(ctx context.Context, userID string, since time.Time) ([]*models.AuditEntry, error) {
	return nil, nil
}

func (r *stubAuditRepo) GetByEntity(ctx context.Context, entityID string) ([]*models.AuditEntry, error) {
	return nil, nil
}

func newLoginRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := pkg.NewNopLogger()
	userRepo := &stubUserRepo{users: make(map[string]*models.User)}
	roleRepo := &stubRoleRepo{roles: make(map[int64]*models.Role)}
	attemptRepo := &stubAttemptRepo{}
	auditRepo := &stubAuditRepo{}

	roleRepo.Create(context.Background(), &models.Role{ID: 1, RoleName: "Staff", IsActive: true})
	hash, err := pkg.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	userRepo.Create(context.Background(), &models.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		RoleID:       1,
		IsActive:     true,
	})

	audit := services.NewAuditService(auditRepo, logger)
	changes := services.NewChangeRecorder(audit, logger, false)
	jwtManager := pkg.NewJWTManager("test-secret", 15*time.Minute, time.Hour, "test", "test-api")
	authService := services.NewAuthService(userRepo, roleRepo, attemptRepo, audit, changes, jwtManager, logger)

	engine := gin.New()
	engine.POST("/api/auth/login", NewAuthHandler(authService).Login)
	return engine
}

func postLogin(t *testing.T, engine *gin.Engine, username, password string) (*httptest.ResponseRecorder, LoginResponse) {
	t.Helper()
	payload, _ := json.Marshal(LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var body LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal failed: %v (%s)", err, rec.Body.String())
	}
	return rec, body
}

func TestLoginSuccess(t *testing.T) {
	engine := newLoginRouter(t)

	rec, body := postLogin(t, engine, "alice", "correct horse")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !body.IsSuccess || body.Token == "" || body.RefreshToken == "" {
		t.Fatalf("expected tokens in successful response: %+v", body)
	}
	if body.ErrorMessage != "" {
		t.Fatalf("success must carry no error message")
	}
}

func TestLoginFailureIsAlways200WithGenericMessage(t *testing.T) {
	engine := newLoginRouter(t)

	// Unknown username and wrong password yield the same envelope, so
	// the response never reveals which one was wrong.
	for _, attempt := range [][2]string{
		{"nobody", "whatever"},
		{"alice", "wrong password"},
	} {
		rec, body := postLogin(t, engine, attempt[0], attempt[1])
		if rec.Code != http.StatusOK {
			t.Fatalf("failed login must answer 200, got %d", rec.Code)
		}
		if body.IsSuccess {
			t.Fatalf("expected failure for %v", attempt)
		}
		if body.ErrorMessage != pkg.ErrInvalidCredentials.Message {
			t.Fatalf("expected the generic message, got %q", body.ErrorMessage)
		}
		if body.Token != "" || body.RefreshToken != "" {
			t.Fatalf("failed login must not leak tokens")
		}
	}
}

func TestLoginLockedAccountLooksLikeBadCredentials(t *testing.T) {
	engine := newLoginRouter(t)

	for i := 0; i < models.LockoutThreshold; i++ {
		postLogin(t, engine, "alice", "wrong password")
	}

	rec, body := postLogin(t, engine, "alice", "correct horse")
	if rec.Code != http.StatusOK || body.IsSuccess {
		t.Fatalf("locked account must fail with 200, got code=%d body=%+v", rec.Code, body)
	}
	if body.ErrorMessage != pkg.ErrInvalidCredentials.Message {
		t.Fatalf("lockout must not be distinguishable, got %q", body.ErrorMessage)
	}
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	engine := newLoginRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Fatalf("a payload missing required fields must not reach authentication")
	}
}
