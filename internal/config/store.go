package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/fortina-rp/intake/internal/model"
)

// Store persists staff credentials and applicant submissions. The default
// backend is SQLite; postgres and mysql are supported through the same
// sqlx surface for deployments that already run a database server.
type Store struct {
	db     *sqlx.DB
	driver string
}

// NewStore opens the default SQLite store under dataDir. Pass empty string
// for in-memory (used by tests).
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "intake.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return Open("sqlite", dsn)
}

// Open connects to the named driver ("sqlite", "postgres", or "mysql") and
// runs migrations. The returned store is ready for use.
func Open(driver, dsn string) (*Store, error) {
	sqlDriver := driver
	if driver == "postgres" {
		sqlDriver = "pgx"
	}
	if driver == "mysql" && !strings.Contains(dsn, "parseTime") {
		// DATETIME columns must scan into time.Time.
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sqlx.Connect(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate %s database: %w", driver, err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a unique-constraint failure on
// any of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// ---------------------------------------------------------------------------
// Admin credentials
// ---------------------------------------------------------------------------

// CreateAdmin inserts a new staff account. The password must already be
// hashed. Returns ErrConflict when the username is taken. The ID, CreatedAt,
// and UpdatedAt fields are populated after a successful insert.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	if s.driver == "postgres" {
		const q = `INSERT INTO admins (username, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`
		err := s.db.QueryRowxContext(ctx, q,
			admin.Username, admin.PasswordHash, admin.Role, admin.CreatedAt, admin.UpdatedAt,
		).Scan(&admin.ID)
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert admin: %w", err)
		}
		return nil
	}

	const q = `INSERT INTO admins (username, password_hash, role, created_at, updated_at)
		VALUES (:username, :password_hash, :role, :created_at, :updated_at)`
	result, err := s.db.NamedExecContext(ctx, q, admin)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get admin id: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdminByUsername returns a staff account by username, including the
// password hash for verification. Returns ErrNotFound when absent.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	q := s.db.Rebind("SELECT * FROM admins WHERE username = ?")
	if err := s.db.GetContext(ctx, &admin, q, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all staff accounts ordered by id. Password hashes are
// not included in the result shape.
func (s *Store) ListAdmins(ctx context.Context) ([]model.AdminSummary, error) {
	var admins []model.AdminSummary
	const q = "SELECT id, username, role FROM admins ORDER BY id ASC"
	if err := s.db.SelectContext(ctx, &admins, q); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// DeleteAdmin removes a staff account by id. Returns ErrNotFound when no
// such account exists. Active sessions for the deleted account are not
// revoked; they lapse at natural expiry.
func (s *Store) DeleteAdmin(ctx context.Context, id int64) error {
	q := s.db.Rebind("DELETE FROM admins WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete admin rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RepairAdminRole forces a known account back to its intended role. This is
// a one-off migration tool behind the maintenance endpoint, not a general
// role-change API. Returns ErrNotFound when the account does not exist.
func (s *Store) RepairAdminRole(ctx context.Context, username string, role model.Role) error {
	now := time.Now().UTC()
	q := s.db.Rebind("UPDATE admins SET role = ?, updated_at = ? WHERE username = ?")
	result, err := s.db.ExecContext(ctx, q, role, now, username)
	if err != nil {
		return fmt.Errorf("repair admin role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repair admin role rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Applications
// ---------------------------------------------------------------------------

// CreateApplication inserts a new applicant submission. Returns ErrConflict
// when the code is already taken. The ID field is populated after insert.
func (s *Store) CreateApplication(ctx context.Context, app *model.Application) error {
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now().UTC()
	}

	if s.driver == "postgres" {
		const q = `INSERT INTO apps
			(code, nick, game_nick, real_name, submitted_at, status, age, discord,
			 online, majestic, tz, interests, surname, comment)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id`
		err := s.db.QueryRowxContext(ctx, q,
			app.Code, app.Nick, app.GameNick, app.RealName, app.SubmittedAt, app.Status,
			app.Age, app.Discord, app.Online, app.Majestic, app.Timezone,
			app.Interests, app.Surname, app.Comment,
		).Scan(&app.ID)
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert application: %w", err)
		}
		return nil
	}

	const q = `INSERT INTO apps
		(code, nick, game_nick, real_name, submitted_at, status, age, discord,
		 online, majestic, tz, interests, surname, comment)
		VALUES
		(:code, :nick, :game_nick, :real_name, :submitted_at, :status, :age, :discord,
		 :online, :majestic, :tz, :interests, :surname, :comment)`
	result, err := s.db.NamedExecContext(ctx, q, app)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get application id: %w", err)
	}
	app.ID = id
	return nil
}

// GetApplicationByCode returns the submission with the given code.
func (s *Store) GetApplicationByCode(ctx context.Context, code string) (*model.Application, error) {
	var app model.Application
	q := s.db.Rebind("SELECT * FROM apps WHERE code = ?")
	if err := s.db.GetContext(ctx, &app, q, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get application by code: %w", err)
	}
	return &app, nil
}

// FindApplicationByDiscord returns the newest submission matching the given
// discord handle, compared case-insensitively.
func (s *Store) FindApplicationByDiscord(ctx context.Context, discord string) (*model.Application, error) {
	var app model.Application
	q := s.db.Rebind("SELECT * FROM apps WHERE LOWER(discord) = LOWER(?) ORDER BY id DESC LIMIT 1")
	if err := s.db.GetContext(ctx, &app, q, discord); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find application by discord: %w", err)
	}
	return &app, nil
}

// ListApplications returns submissions newest first, capped at limit rows.
func (s *Store) ListApplications(ctx context.Context, limit int) ([]model.Application, error) {
	var apps []model.Application
	q := s.db.Rebind("SELECT * FROM apps ORDER BY id DESC LIMIT ?")
	if err := s.db.SelectContext(ctx, &apps, q, limit); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}
