// Package db holds the database/sql helpers shared by the stores.
package db

import (
	"database/sql"
	"fmt"
)

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including when fn panics.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NullString stores s, or NULL when s is empty.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
