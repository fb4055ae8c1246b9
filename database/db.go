package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the sqlite database that backs the back-office tables and
// the STS caches. WAL plus a single writer connection keeps the collectors
// and the HTTP handlers from tripping over SQLITE_BUSY.
func InitDB(dataSourceName string) (*sql.DB, error) {
	dsn := dataSourceName + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Database ready at %s (WAL, single writer)", dataSourceName)
	return db, nil
}
