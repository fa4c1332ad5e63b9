package state

import (
	"database/sql"
	"errors"
	"strconv"
	"time"
)

const (
	keyVolume  = "volume"
	keyShuffle = "shuffle"
)

// Settings are the persisted player preferences.
type Settings struct {
	Volume  float64
	Shuffle bool
}

// DefaultSettings is returned for keys that were never saved.
var DefaultSettings = Settings{Volume: 1.0}

// GetSettings returns the saved settings, with defaults for missing keys.
func (m *Manager) GetSettings() (Settings, error) {
	s := DefaultSettings

	v, ok, err := getSetting(m.db, keyVolume)
	if err != nil {
		return s, err
	}
	if ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Volume = f
		}
	}

	v, ok, err = getSetting(m.db, keyShuffle)
	if err != nil {
		return s, err
	}
	if ok {
		s.Shuffle = v == "1"
	}
	return s, nil
}

// SaveVolume schedules the volume level to be persisted.
func (m *Manager) SaveVolume(level float64) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &level
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	m.saveTimer = time.AfterFunc(saveDebounce, m.Flush)
	return nil
}

// SaveShuffle persists the shuffle flag.
func (m *Manager) SaveShuffle(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return setSetting(m.db, keyShuffle, v)
}

func getSetting(db *sql.DB, key string) (string, bool, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func setSetting(db *sql.DB, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
