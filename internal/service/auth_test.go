package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fortina-rp/intake/internal/config"
	"github.com/fortina-rp/intake/internal/model"
)

func newTestAuthService(t *testing.T) (*AuthService, *config.Store) {
	t.Helper()
	store, err := config.NewStore("") // in-memory
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := NewAuthService(store, NewMemorySessionStore(), time.Hour)
	return svc, store
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, "Fortina", "hunter22", model.RoleOwner); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	sess, err := svc.Login(ctx, "Fortina", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Username != "Fortina" || sess.Role != model.RoleOwner {
		t.Errorf("unexpected session identity: %+v", sess)
	}
	if sess.Token == "" {
		t.Error("expected a non-empty token")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, "Alina", "correct-pass", model.RoleModerator); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	// Wrong password and unknown username must be indistinguishable.
	_, errWrongPass := svc.Login(ctx, "Alina", "wrong-pass")
	_, errNoUser := svc.Login(ctx, "Nobody", "whatever")

	if !errors.Is(errWrongPass, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", errWrongPass)
	}
	if !errors.Is(errNoUser, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", errNoUser)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, "Daniil", "pass", model.RoleHelper); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	sess, err := svc.Login(ctx, "Daniil", "pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	svc.Logout(sess.Token)
	if _, err := svc.sessions.Validate(sess.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("expected session invalid after logout, got %v", err)
	}

	// Logging out again is a no-op.
	svc.Logout(sess.Token)
}

func TestCreateAdminHashesPassword(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, "Alina", "plaintext", model.RoleModerator); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	stored, err := store.GetAdminByUsername(ctx, "Alina")
	if err != nil {
		t.Fatalf("GetAdminByUsername: %v", err)
	}
	if stored.PasswordHash == "plaintext" {
		t.Fatal("password stored in plaintext")
	}
	// The hash verifies via the normal login path.
	if _, err := svc.Login(ctx, "Alina", "plaintext"); err != nil {
		t.Errorf("Login with original password: %v", err)
	}
}

func TestSeedIdempotent(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()

	bootstrap := []config.BootstrapAdmin{
		{Username: "Fortina", Password: "pw1", Role: "Owner"},
		{Username: "Alina", Password: "pw2", Role: "Moderator"},
		{Username: "Daniil", Password: "pw3", Role: "Helper"},
	}

	if err := svc.Seed(ctx, bootstrap); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	admins, err := store.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(admins) != 3 {
		t.Fatalf("got %d admins, want 3", len(admins))
	}

	// Mutate one account, then seed again; the change must survive.
	if err := store.RepairAdminRole(ctx, "Daniil", model.RoleModerator); err != nil {
		t.Fatalf("RepairAdminRole: %v", err)
	}
	if err := svc.Seed(ctx, bootstrap); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	got, err := store.GetAdminByUsername(ctx, "Daniil")
	if err != nil {
		t.Fatalf("GetAdminByUsername: %v", err)
	}
	if got.Role != model.RoleModerator {
		t.Error("re-seeding must not overwrite existing accounts")
	}
	admins, err = store.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(admins) != 3 {
		t.Errorf("got %d admins after re-seed, want 3", len(admins))
	}
}

func TestSeedRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestAuthService(t)

	err := svc.Seed(context.Background(), []config.BootstrapAdmin{
		{Username: "X", Password: "pw", Role: "Emperor"},
	})
	if err == nil {
		t.Fatal("expected error for unknown bootstrap role")
	}
}
