package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fortina-rp/intake/internal/config"
	"github.com/fortina-rp/intake/internal/model"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password. The two cases are indistinguishable to the caller so login
// responses never reveal whether an account exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService verifies staff credentials against the store and manages
// login sessions.
type AuthService struct {
	store    *config.Store
	sessions SessionStore
	ttl      time.Duration
}

// NewAuthService creates an AuthService issuing sessions with the given ttl.
func NewAuthService(store *config.Store, sessions SessionStore, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{store: store, sessions: sessions, ttl: ttl}
}

// SessionTTL returns the lifetime applied to issued sessions, which is also
// the max-age of the session cookie.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

// HashPassword hashes a plaintext password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies the credentials and issues a new session. Fails closed
// with ErrInvalidCredentials on unknown username or hash mismatch.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	admin, err := s.store.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(admin.Username, admin.Role, s.ttl)
	if err != nil {
		return nil, err
	}
	return s.sessions.Validate(token)
}

// Logout revokes the session for the given token. Idempotent.
func (s *AuthService) Logout(token string) {
	s.sessions.Revoke(token)
}

// CreateAdmin hashes the password and stores a new staff account.
// Returns config.ErrConflict when the username is taken.
func (s *AuthService) CreateAdmin(ctx context.Context, username, password string, role model.Role) (*model.Admin, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &model.Admin{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Seed inserts each bootstrap account that does not already exist. It is
// idempotent and safe to run on every startup; an existing account's hash
// and role are never overwritten.
func (s *AuthService) Seed(ctx context.Context, bootstrap []config.BootstrapAdmin) error {
	for _, b := range bootstrap {
		role, err := model.ParseRole(b.Role)
		if err != nil {
			return fmt.Errorf("seed %q: %w", b.Username, err)
		}

		_, err = s.store.GetAdminByUsername(ctx, b.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("seed %q: %w", b.Username, err)
		}

		if _, err := s.CreateAdmin(ctx, b.Username, b.Password, role); err != nil {
			// A concurrent seeder may have inserted the account first.
			if errors.Is(err, config.ErrConflict) {
				continue
			}
			return fmt.Errorf("seed %q: %w", b.Username, err)
		}
	}
	return nil
}
