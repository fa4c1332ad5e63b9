package db

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	return conn
}

func countItems(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestWithTx_Commits(t *testing.T) {
	conn := openTestDB(t)

	err := WithTx(conn, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items (name) VALUES ('a'), ('b')`)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 2, countItems(t, conn))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	conn := openTestDB(t)
	boom := errors.New("boom")

	err := WithTx(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countItems(t, conn))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	conn := openTestDB(t)

	assert.Panics(t, func() {
		_ = WithTx(conn, func(tx *sql.Tx) error {
			_, _ = tx.Exec(`INSERT INTO items (name) VALUES ('a')`)
			panic("boom")
		})
	})

	assert.Equal(t, 0, countItems(t, conn))
}

func TestNullString(t *testing.T) {
	conn := openTestDB(t)
	_, err := conn.Exec(`INSERT INTO items (name) VALUES (?), (?)`, NullString(""), NullString("x"))
	require.NoError(t, err)

	var nulls int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM items WHERE name IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}
