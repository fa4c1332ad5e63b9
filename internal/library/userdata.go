package library

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/llehouerou/cadence/internal/db"
)

// UserDataVersion is the format version written by Export.
const UserDataVersion = 1

// ErrInvalidUserData is returned by Import for documents without play counts.
var ErrInvalidUserData = errors.New("invalid user data: missing playCounts")

// UserData is the portable export of listening data. Tracks are keyed by
// "Artist|Title" so counts survive a rescan on another machine.
type UserData struct {
	Version    int               `json:"version"`
	Timestamp  int64             `json:"timestamp"` // unix ms
	PlayCounts map[string]int    `json:"playCounts"`
	Playlists  []json.RawMessage `json:"playlists"`
}

// Export writes every track's play count to w as indented JSON.
func (l *Library) Export(w io.Writer) error {
	data := UserData{
		Version:    UserDataVersion,
		Timestamp:  time.Now().UnixMilli(),
		PlayCounts: make(map[string]int),
		Playlists:  []json.RawMessage{},
	}
	l.mu.RLock()
	for _, t := range l.tracks {
		data.PlayCounts[t.UserDataKey()] = t.PlayCount
	}
	l.mu.RUnlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("export user data: %w", err)
	}
	return nil
}

// Import merges play counts from r, keeping the higher of the imported
// and current count. It returns the number of tracks changed.
func (l *Library) Import(r io.Reader) (int, error) {
	var data UserData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return 0, fmt.Errorf("import user data: %w", err)
	}
	if data.PlayCounts == nil {
		return 0, ErrInvalidUserData
	}

	type update struct {
		t     *Track
		count int
	}
	var updates []update
	l.mu.RLock()
	for _, t := range l.tracks {
		if n, ok := data.PlayCounts[t.UserDataKey()]; ok && n > t.PlayCount {
			updates = append(updates, update{t: t, count: n})
		}
	}
	l.mu.RUnlock()
	if len(updates) == 0 {
		return 0, nil
	}

	err := db.WithTx(l.db, func(tx *sql.Tx) error {
		for _, u := range updates {
			if _, err := tx.Exec(`UPDATE library_tracks SET play_count = ? WHERE id = ?`, u.count, u.t.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import user data: %w", err)
	}

	l.mu.Lock()
	for _, u := range updates {
		u.t.PlayCount = u.count
	}
	l.mu.Unlock()
	return len(updates), nil
}
