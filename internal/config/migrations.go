package config

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	// Auto-increment primary keys are spelled differently per driver; the
	// rest of the DDL is portable across sqlite, postgres, and mysql.
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "TIMESTAMP"
	switch s.driver {
	case "postgres":
		pk = "BIGSERIAL PRIMARY KEY"
	case "mysql":
		pk = "BIGINT PRIMARY KEY AUTO_INCREMENT"
		ts = "DATETIME"
	}

	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS admins (
			id %s,
			username VARCHAR(190) UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role VARCHAR(32) NOT NULL,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, pk, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS apps (
			id %s,
			code VARCHAR(16) UNIQUE NOT NULL,
			nick TEXT NOT NULL,
			game_nick TEXT NOT NULL,
			real_name TEXT NOT NULL,
			submitted_at %s NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			age TEXT NOT NULL,
			discord TEXT NOT NULL,
			online TEXT NOT NULL,
			majestic TEXT NOT NULL,
			tz TEXT NOT NULL,
			interests TEXT NOT NULL,
			surname TEXT NOT NULL,
			comment TEXT NOT NULL
		)`, pk, ts),
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
