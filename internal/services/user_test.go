package services

import (
	"context"
	"testing"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
)

func newUserFixture() (*fixture, *UserService) {
	f := newFixture()
	svc := NewUserService(f.users, f.roles, f.changes, pkg.NewNopLogger())
	return f, svc
}

func TestCreateUser(t *testing.T) {
	f, svc := newUserFixture()
	ctx := context.Background()
	role := f.addRole("Staff")

	user, err := svc.Create(ctx, CreateUserInput{
		Username:  "bob",
		Email:     "Bob@Example.com",
		Password:  "long enough 1",
		FirstName: "Bob",
		RoleID:    role.ID,
	}, testActor)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.Email != "bob@example.com" {
		t.Fatalf("email must be normalized, got %q", user.Email)
	}
	if !user.MustChangePassword {
		t.Fatalf("new accounts must change their password on first login")
	}
	if !pkg.VerifyPassword("long enough 1", user.PasswordHash) {
		t.Fatalf("stored hash does not verify")
	}

	if entries := f.audits.byEventType("UserCreated"); len(entries) != 1 {
		t.Fatalf("expected one UserCreated entry, got %d", len(entries))
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	f, svc := newUserFixture()
	ctx := context.Background()
	role := f.addRole("Staff")

	input := CreateUserInput{Username: "bob", Email: "bob@example.com", Password: "long enough 1", RoleID: role.ID}
	if _, err := svc.Create(ctx, input, testActor); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.Create(ctx, input, testActor)
	if appErr, ok := pkg.IsAppError(err); !ok || appErr.Code != pkg.ErrDuplicateUsername.Code {
		t.Fatalf("expected duplicate username, got %v", err)
	}

	input.Username = "robert"
	_, err = svc.Create(ctx, input, testActor)
	if appErr, ok := pkg.IsAppError(err); !ok || appErr.Code != pkg.ErrDuplicateEmail.Code {
		t.Fatalf("expected duplicate email, got %v", err)
	}
}

func TestCreateUserRejectsWeakPassword(t *testing.T) {
	f, svc := newUserFixture()
	role := f.addRole("Staff")

	_, err := svc.Create(context.Background(), CreateUserInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "short",
		RoleID:   role.ID,
	}, testActor)
	if appErr, ok := pkg.IsAppError(err); !ok || appErr.Code != pkg.ErrWeakPassword.Code {
		t.Fatalf("expected weak password rejection, got %v", err)
	}
}

func TestCreateUserRequiresExistingRole(t *testing.T) {
	_, svc := newUserFixture()

	_, err := svc.Create(context.Background(), CreateUserInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "long enough 1",
		RoleID:   99,
	}, testActor)
	if err == nil {
		t.Fatalf("expected missing role to fail creation")
	}
}

func TestDeactivateAndReactivate(t *testing.T) {
	f, svc := newUserFixture()
	ctx := context.Background()
	role := f.addRole("Staff")
	user := f.addUser("bob", role.ID)

	if err := svc.Deactivate(ctx, user.ID, testActor); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.IsActive {
		t.Fatalf("account must be inactive")
	}

	// Deactivating twice is a no-op and records nothing extra.
	before := f.audits.count()
	if err := svc.Deactivate(ctx, user.ID, testActor); err != nil {
		t.Fatalf("repeat deactivate failed: %v", err)
	}
	if f.audits.count() != before {
		t.Fatalf("idempotent deactivate must not write audit entries")
	}

	if err := svc.Reactivate(ctx, user.ID, testActor); err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	stored, _ = f.users.GetByID(ctx, user.ID)
	if !stored.IsActive {
		t.Fatalf("account must be active again")
	}
}

func TestAssignRole(t *testing.T) {
	f, svc := newUserFixture()
	ctx := context.Background()
	staff := f.addRole("Staff")
	manager := f.addRole("Manager")
	user := f.addUser("bob", staff.ID)

	if err := svc.AssignRole(ctx, user.ID, manager.ID, testActor); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.RoleID != manager.ID {
		t.Fatalf("role not applied, got %d", stored.RoleID)
	}

	// Re-assigning the same role records nothing.
	before := f.audits.count()
	if err := svc.AssignRole(ctx, user.ID, manager.ID, testActor); err != nil {
		t.Fatalf("repeat assign failed: %v", err)
	}
	if f.audits.count() != before {
		t.Fatalf("no-op assignment must not write audit entries")
	}

	if err := svc.AssignRole(ctx, user.ID, 99, testActor); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestEnsureSeedRolesIsIdempotent(t *testing.T) {
	f, svc := newUserFixture()
	ctx := context.Background()

	if err := svc.EnsureSeedRoles(ctx); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
	roles, _ := f.roles.List(ctx)
	if len(roles) != 4 {
		t.Fatalf("expected four seed roles, got %d", len(roles))
	}

	if err := svc.EnsureSeedRoles(ctx); err != nil {
		t.Fatalf("second seeding failed: %v", err)
	}
	roles, _ = f.roles.List(ctx)
	if len(roles) != 4 {
		t.Fatalf("seeding must be idempotent, got %d roles", len(roles))
	}

	if _, err := f.roles.GetByName(ctx, models.RoleAdministrator); err != nil {
		t.Fatalf("Administrator role must exist: %v", err)
	}
}
