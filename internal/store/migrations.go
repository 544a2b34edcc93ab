package store

import (
	"database/sql"
	"fmt"

	"fichaje/internal/logging"
)

// migration adds a column that older history databases lack.
type migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations upgrades databases written before these columns existed.
// CREATE TABLE already carries them, so on fresh files every entry is a no-op.
var pendingMigrations = []migration{
	{"runs", "absences", "INTEGER NOT NULL DEFAULT 0"},
	{"outcomes", "skip_reason", "TEXT"},
	{"outcomes", "absence", "TEXT"},
	{"outcomes", "written", "INTEGER NOT NULL DEFAULT 0"},
	{"runs", "detection_errors", "INTEGER NOT NULL DEFAULT 0"},
	{"outcomes", "detection_error", "TEXT"},
}

// runMigrations applies pendingMigrations. A failing ALTER is logged and
// skipped; the column may exist in another form.
func runMigrations(db *sql.DB) (applied int, err error) {
	log := logging.Get(logging.CategoryStore)
	for _, m := range pendingMigrations {
		ok, err := tableExists(db, m.Table)
		if err != nil {
			return applied, err
		}
		if !ok {
			continue
		}
		has, err := columnExists(db, m.Table, m.Column)
		if err != nil {
			return applied, err
		}
		if has {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			log.Warn("Migration failed: %s.%s: %v", m.Table, m.Column, err)
			continue
		}
		log.Info("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}
	return applied, nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             interface{}
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return count > 0, nil
}
