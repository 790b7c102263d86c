package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fortina-rp/intake/internal/model"
)

// FileConfig represents the top-level intake configuration file.
type FileConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	StaticDir       string   `yaml:"static_dir"`
	CORSOrigins     []string `yaml:"cors_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// AuthConfig controls sessions and the bootstrap credential list. Bootstrap
// accounts live in this operator-supplied file, never in the binary; seeding
// is idempotent and never overwrites an existing account.
type AuthConfig struct {
	SessionTTL    string           `yaml:"session_ttl"`
	SweepInterval string           `yaml:"sweep_interval"` // empty disables the sweeper
	LoginRate     int              `yaml:"login_rate_per_minute"`
	Bootstrap     []BootstrapAdmin `yaml:"bootstrap"`
	Repair        RepairConfig     `yaml:"repair"`
}

// BootstrapAdmin is one entry of the startup seed list.
type BootstrapAdmin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// RepairConfig names the account the unauthenticated maintenance hook
// forces back to its intended role.
type RepairConfig struct {
	Username string `yaml:"username"`
	Role     string `yaml:"role"`
}

// StorageConfig selects the backing database. Driver is one of
// "sqlite" (default), "postgres", or "mysql". DSN is ignored for sqlite,
// which stores its file under the data directory.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultFileConfig returns the configuration used when no file is present.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: "30s",
		},
		Auth: AuthConfig{
			SessionTTL: "1h",
			LoginRate:  10,
			Repair: RepairConfig{
				Username: "Fortina",
				Role:     string(model.RoleOwner),
			},
		},
		Storage: StorageConfig{Driver: "sqlite"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// LoadFile reads and parses the YAML configuration file at path, applying
// defaults for any omitted fields. A missing file is not an error; the
// defaults are returned.
func LoadFile(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c FileConfig) validate() error {
	for i, b := range c.Auth.Bootstrap {
		if b.Username == "" || b.Password == "" {
			return fmt.Errorf("auth.bootstrap[%d]: username and password are required", i)
		}
		if _, err := model.ParseRole(b.Role); err != nil {
			return fmt.Errorf("auth.bootstrap[%d]: %w", i, err)
		}
	}
	if c.Auth.Repair.Username != "" {
		if _, err := model.ParseRole(c.Auth.Repair.Role); err != nil {
			return fmt.Errorf("auth.repair: %w", err)
		}
	}
	switch c.Storage.Driver {
	case "", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	return nil
}

// ParsedSessionTTL parses the configured session lifetime, defaulting to one hour.
func (c AuthConfig) ParsedSessionTTL() time.Duration {
	return parseDuration(c.SessionTTL, time.Hour)
}

// ParsedSweepInterval parses the sweeper interval; zero means disabled.
func (c AuthConfig) ParsedSweepInterval() time.Duration {
	return parseDuration(c.SweepInterval, 0)
}

// ParsedShutdownTimeout parses the graceful shutdown timeout.
func (c ServerConfig) ParsedShutdownTimeout() time.Duration {
	return parseDuration(c.ShutdownTimeout, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
