// Package state owns the SQLite database and the persisted player settings.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "cadence"
	dbFileName   = "cadence.db"
	saveDebounce = 500 * time.Millisecond
)

// Manager owns the database handle. Volume saves are debounced since the
// level changes in bursts; everything else is written immediately.
type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *float64
}

// Open opens the database at path, or at the XDG data location when path
// is empty, creating the schema if needed.
func Open(path string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Manager{db: db}, nil
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Manager, error) {
	db, err := openDB(":memory:")
	if err != nil {
		return nil, err
	}
	return &Manager{db: db}, nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps an in-memory database shared and serializes
	// writers on a file database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// DefaultDBPath returns the XDG data path of the database.
func DefaultDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Close flushes a pending volume save and closes the database.
func (m *Manager) Close() error {
	m.Flush()
	return m.db.Close()
}

// DB returns the underlying database.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Flush writes a pending volume save now.
func (m *Manager) Flush() {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending != nil {
		_ = setSetting(m.db, keyVolume, formatFloat(*pending))
	}
}
