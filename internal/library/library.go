package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/db"
)

// ErrNotFound is returned for unknown track ids.
var ErrNotFound = errors.New("track not found")

// Library is the set of indexed tracks. Metadata, play counts and folder
// grants are persisted in the library_tracks and library_sources tables;
// file blobs only live in memory.
type Library struct {
	db       *sql.DB
	log      *zap.Logger
	prompter Prompter

	mu     sync.RWMutex
	tracks []*Track
	byID   map[string]*Track
}

var _ GrantStore = (*Library)(nil)

// New creates a library over db. prompter is asked before a folder that
// was not granted in this database is read.
func New(db *sql.DB, prompter Prompter, log *zap.Logger) *Library {
	if log == nil {
		log = zap.NewNop()
	}
	return &Library{
		db:       db,
		log:      log.Named("library"),
		prompter: prompter,
		byID:     make(map[string]*Track),
	}
}

const trackColumns = `id, file_name, path, root, title, artist, album, duration_ms,
	bitrate, sample_rate, format, picture, picture_mime, play_count`

// Load reads the persisted library. Blobs already held in memory for
// tracks that are still present are kept.
func (l *Library) Load() error {
	rows, err := l.db.Query(`SELECT ` + trackColumns + ` FROM library_tracks ORDER BY added_at, rowid`)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		t, err := l.scanTrack(rows)
		if err != nil {
			return fmt.Errorf("load library: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	byID := make(map[string]*Track, len(tracks))
	for _, t := range tracks {
		if old, ok := l.byID[t.ID]; ok && old.Blob != nil && t.Handle == nil {
			t.Blob = old.Blob
		}
		byID[t.ID] = t
	}
	l.tracks = tracks
	l.byID = byID
	return nil
}

func (l *Library) scanTrack(rows *sql.Rows) (*Track, error) {
	var (
		t               Track
		path, root      sql.NullString
		durationMS      sql.NullInt64
		bitrate, rate   sql.NullInt64
		format, picMIME sql.NullString
		picture         []byte
	)
	if err := rows.Scan(&t.ID, &t.FileName, &path, &root, &t.Title, &t.Artist, &t.Album,
		&durationMS, &bitrate, &rate, &format, &picture, &picMIME, &t.PlayCount); err != nil {
		return nil, err
	}
	// NULL columns scan as zero values.
	t.Duration = msDuration(durationMS.Int64)
	t.Bitrate = int(bitrate.Int64)
	t.SampleRate = int(rate.Int64)
	t.Format = format.String
	if len(picture) > 0 {
		t.Picture = &Picture{Data: picture, MIMEType: picMIME.String}
	}
	if path.Valid {
		t.Handle = NewFileHandle(path.String, root.String, l, l.prompter)
	}
	return &t, nil
}

// Tracks returns the tracks in insertion order.
func (l *Library) Tracks() []*Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Track, len(l.tracks))
	copy(out, l.tracks)
	return out
}

// Track returns the track with id, or nil.
func (l *Library) Track(id string) *Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byID[id]
}

// Len returns the number of tracks.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// AddFolder grants read access to root and indexes every music file
// below it. Progress is reported on progress, which is closed on return.
func (l *Library) AddFolder(ctx context.Context, root string, progress chan<- ScanProgress) (*ScanStats, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, err
	}
	info, err := os.Stat(abs)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", abs)
	}
	if err == nil {
		err = l.AddGrant(abs)
	}
	if err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, fmt.Errorf("add folder: %w", err)
	}
	return l.scan(ctx, []string{abs}, progress)
}

// Refresh rescans every granted folder: new files are added, changed files
// re-read and vanished files removed.
func (l *Library) Refresh(ctx context.Context, progress chan<- ScanProgress) (*ScanStats, error) {
	sources, err := l.Sources()
	if err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, err
	}
	return l.scan(ctx, sources, progress)
}

// AddFiles indexes loose files. Their bytes are held in memory for this
// session only; after a restart they are metadata-only entries.
func (l *Library) AddFiles(paths []string) ([]*Track, error) {
	added := make([]*Track, 0, len(paths))
	now := time.Now().Unix()

	err := db.WithTx(l.db, func(tx *sql.Tx) error {
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			t := readTrack(data, filepath.Base(p))
			t.Blob = data
			if err := insertTrack(tx, t, "", "", 0, now); err != nil {
				return err
			}
			added = append(added, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	for _, t := range added {
		l.tracks = append(l.tracks, t)
		l.byID[t.ID] = t
	}
	l.mu.Unlock()
	return added, nil
}

// IncrementPlayCount bumps the play count of id by one.
func (l *Library) IncrementPlayCount(id string) error {
	res, err := l.db.Exec(`UPDATE library_tracks SET play_count = play_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment play count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("increment play count %s: %w", id, ErrNotFound)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.byID[id]; ok {
		t.PlayCount++
	}
	return nil
}

// Reset removes every track and folder grant.
func (l *Library) Reset() error {
	err := db.WithTx(l.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM library_tracks`); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM library_sources`)
		return err
	})
	if err != nil {
		return fmt.Errorf("reset library: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tracks = nil
	l.byID = make(map[string]*Track)
	return nil
}

// Sources returns all granted folders.
func (l *Library) Sources() ([]string, error) {
	rows, err := l.db.Query(`SELECT path FROM library_sources ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		sources = append(sources, path)
	}
	return sources, rows.Err()
}

// HasGrant reports whether root was granted.
func (l *Library) HasGrant(root string) (bool, error) {
	var n int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM library_sources WHERE path = ?`, root).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddGrant records read access to root.
func (l *Library) AddGrant(root string) error {
	_, err := l.db.Exec(`
		INSERT INTO library_sources (path, added_at) VALUES (?, ?)
		ON CONFLICT(path) DO NOTHING
	`, root, time.Now().Unix())
	return err
}

func insertTrack(tx *sql.Tx, t *Track, path, root string, mtime, now int64) error {
	var pic []byte
	var picMIME string
	if t.Picture != nil {
		pic = t.Picture.Data
		picMIME = t.Picture.MIMEType
	}
	_, err := tx.Exec(`
		INSERT INTO library_tracks (id, file_name, path, root, mtime, title, artist, album,
			duration_ms, bitrate, sample_rate, format, picture, picture_mime, play_count, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			duration_ms = excluded.duration_ms,
			bitrate = excluded.bitrate,
			sample_rate = excluded.sample_rate,
			format = excluded.format,
			picture = excluded.picture,
			picture_mime = excluded.picture_mime
	`, t.ID, t.FileName, db.NullString(path), db.NullString(root), mtime, t.Title, t.Artist, t.Album,
		t.Duration.Milliseconds(), t.Bitrate, t.SampleRate, t.Format, pic, db.NullString(picMIME), t.PlayCount, now)
	if err != nil {
		return fmt.Errorf("save track %s: %w", t.FileName, err)
	}
	return nil
}
