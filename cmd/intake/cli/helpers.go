package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fortina-rp/intake/internal/config"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// INTAKE_DATA_DIR env var, or ~/.intake as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("INTAKE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.intake"
}

// openStore opens the configured backing store. An explicit driver/DSN from
// the config file wins; the default is SQLite under the data directory.
func openStore(storage config.StorageConfig) (*config.Store, error) {
	if storage.Driver != "" && storage.Driver != "sqlite" {
		return config.Open(storage.Driver, storage.DSN)
	}
	return config.NewStore(resolveDataDir())
}

// loadFileConfig reads the YAML config file, falling back to defaults when
// no file is present.
func loadFileConfig() (config.FileConfig, error) {
	path := cfgFile
	if path == "" {
		path = "intake.yaml"
	}
	return config.LoadFile(path)
}

// --- PID file management ---

func pidFilePath() string {
	return filepath.Join(resolveDataDir(), "intake.pid")
}

func writePID(pid int) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}
