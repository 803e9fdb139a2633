package db

import (
	"database/sql"
	"fmt"
)

// Tx wraps sql.Tx; all versioned writes go through it.
type Tx struct {
	*sql.Tx
}

// Begin starts a transaction on the DB.
func (db *DB) Begin() (*Tx, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{Tx: tx}, nil
}

// InTx runs fn inside a transaction, committing on success and rolling back
// when fn returns an error.
func (db *DB) InTx(fn func(tx *Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
