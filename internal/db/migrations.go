package db

import (
	"database/sql"
	_ "embed"
	"fmt"

	// _ import for sqlite driver registration
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ApplyMigrations applies the embedded schema SQL to the database and
// performs lightweight post-creation migrations (adding new columns when needed).
func ApplyMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	// Ensure new columns exist on upgrades
	if err := ensureRunColumns(db); err != nil {
		return err
	}
	if err := ensureReleaseColumns(db); err != nil {
		return err
	}
	return nil
}

// ensureRunColumns checks for optional columns and adds them when missing.
// actor and version were introduced after the first schema revision.
func ensureRunColumns(db *sql.DB) error {
	cols, err := tableColumns(db, "runs")
	if err != nil {
		return err
	}
	if !cols["actor"] {
		if _, err := db.Exec("ALTER TABLE runs ADD COLUMN actor TEXT"); err != nil {
			return err
		}
	}
	if !cols["version"] {
		if _, err := db.Exec("ALTER TABLE runs ADD COLUMN version TEXT"); err != nil {
			return err
		}
	}
	return nil
}

// ensureReleaseColumns adds the checksums column on databases created
// before it existed.
func ensureReleaseColumns(db *sql.DB) error {
	cols, err := tableColumns(db, "releases")
	if err != nil {
		return err
	}
	if !cols["checksums"] {
		if _, err := db.Exec("ALTER TABLE releases ADD COLUMN checksums TEXT"); err != nil {
			return err
		}
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dflt interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
