package database

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// DB is the global database instance
var DB *sql.DB

// ErrNotInitialized is returned by best-effort writes before Init
var ErrNotInitialized = errors.New("database not initialized")

// Init opens the sqlite database at dbPath and creates the schema
func Init(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	if DB != nil {
		_ = DB.Close()
	}
	DB = db

	return EnsureSchema()
}

// Close closes the global database
func Close() error {
	if DB == nil {
		return nil
	}
	err := DB.Close()
	DB = nil
	return err
}
