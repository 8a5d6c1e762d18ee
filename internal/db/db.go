package db

import (
	"database/sql"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema_sqlite.sql schema_postgres.sql
var schemaFS embed.FS

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Open connects to the database behind driver/dsn and applies the schema.
// For sqlite the dsn is a file path; the parent directory is created.
func Open(driver, dsn string, maxConns int) (*sql.DB, error) {
	source := dsn
	if driver == DriverSQLite {
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, err
			}
		}
		source = sqliteSource(dsn)
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connecting to %s database", driver)
	}
	if err := migrate(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// sqliteSource turns on foreign keys and makes every transaction take the
// write lock up front so concurrent writers wait instead of failing.
func sqliteSource(dsn string) string {
	params := "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

func migrate(db *sql.DB, driver string) error {
	name := "schema_sqlite.sql"
	if driver == DriverPostgres {
		name = "schema_postgres.sql"
	}
	sqlBytes, err := fs.ReadFile(schemaFS, name)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(string(sqlBytes), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "applying %s", name)
		}
	}
	return nil
}
