// Package db persists audiences and saved posts in SQLite.
package db

import (
	"database/sql"
)

// DB handles all database operations with a shared connection pool.
type DB struct {
	db *sql.DB
}

func New(database string) (*DB, error) {
	conn, err := connection(database)
	if err != nil {
		return nil, err
	}
	return &DB{db: conn}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
