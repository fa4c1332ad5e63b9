package library

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/db"
	"github.com/llehouerou/cadence/internal/player"
)

const numWorkers = 8

// Scan phases reported in ScanProgress.
const (
	PhaseScanning   = "scanning"
	PhaseProcessing = "processing"
	PhaseCleaning   = "cleaning"
	PhaseDone       = "done"
)

// ScanProgress reports the progress of a library scan.
type ScanProgress struct {
	Phase       string
	Current     int
	Total       int
	CurrentFile string
	Stats       *ScanStats // only set when Phase == PhaseDone
}

// ScanStats holds the paths touched by a completed scan.
type ScanStats struct {
	Added   []string
	Updated []string // mtime changed
	Removed []string
}

// fileInfo is a discovered music file.
type fileInfo struct {
	path  string
	mtime int64
	root  string
}

type trackResult struct {
	file  fileInfo
	track *Track
	isNew bool
}

// scan indexes every music file under roots. Unchanged files are skipped
// by mtime, and tracks whose file vanished are removed.
func (l *Library) scan(ctx context.Context, roots []string, progress chan<- ScanProgress) (*ScanStats, error) {
	if progress == nil {
		drain := make(chan ScanProgress, 1)
		go func() {
			for range drain {
			}
		}()
		progress = drain
	}
	defer close(progress)

	stats := &ScanStats{}

	progress <- ScanProgress{Phase: PhaseScanning}
	files, discovered := discoverFiles(roots, progress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	existing, err := l.existingTracks(roots)
	if err != nil {
		return nil, err
	}

	toProcess := make([]fileInfo, 0, len(files))
	isNew := make(map[string]bool)
	for _, f := range files {
		prev, ok := existing[f.path]
		if ok && prev.mtime == f.mtime {
			continue
		}
		isNew[f.path] = !ok
		toProcess = append(toProcess, f)
	}

	if len(toProcess) > 0 {
		if err := l.processFiles(ctx, toProcess, isNew, existing, stats, progress); err != nil {
			return nil, err
		}
	}

	progress <- ScanProgress{Phase: PhaseCleaning}
	var removed []string
	for path := range existing {
		if _, ok := discovered[path]; !ok {
			removed = append(removed, path)
		}
	}
	if len(removed) > 0 {
		err := db.WithTx(l.db, func(tx *sql.Tx) error {
			for _, path := range removed {
				if _, err := tx.Exec(`DELETE FROM library_tracks WHERE path = ?`, path); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		stats.Removed = removed
	}

	if err := l.Load(); err != nil {
		return nil, err
	}

	l.log.Info("scan complete",
		zap.Strings("roots", roots),
		zap.Int("added", len(stats.Added)),
		zap.Int("updated", len(stats.Updated)),
		zap.Int("removed", len(stats.Removed)))
	progress <- ScanProgress{Phase: PhaseDone, Current: len(files), Total: len(files), Stats: stats}
	return stats, nil
}

// discoverFiles walks roots and returns every music file found, plus the
// set of discovered paths.
func discoverFiles(roots []string, progress chan<- ScanProgress) ([]fileInfo, map[string]struct{}) {
	var files []fileInfo
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil //nolint:nilerr // keep scanning the rest of the tree
			}
			if d.IsDir() || !player.IsMusicFile(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil //nolint:nilerr // skip files we cannot stat
			}
			files = append(files, fileInfo{path: path, mtime: info.ModTime().Unix(), root: root})
			if len(files)%100 == 0 {
				progress <- ScanProgress{Phase: PhaseScanning, Current: len(files)}
			}
			return nil
		})
	}

	discovered := make(map[string]struct{}, len(files))
	for _, f := range files {
		discovered[f.path] = struct{}{}
	}
	return files, discovered
}

type existingTrack struct {
	id    string
	mtime int64
	plays int
}

// existingTracks returns the indexed files under roots keyed by path.
func (l *Library) existingTracks(roots []string) (map[string]existingTrack, error) {
	rows, err := l.db.Query(`SELECT id, path, mtime, play_count FROM library_tracks WHERE path IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := make(map[string]existingTrack)
	for rows.Next() {
		var (
			et   existingTrack
			path string
		)
		if err := rows.Scan(&et.id, &path, &et.mtime, &et.plays); err != nil {
			return nil, err
		}
		for _, root := range roots {
			if underRoot(root, path) {
				tracks[path] = et
				break
			}
		}
	}
	return tracks, rows.Err()
}

// processFiles reads metadata in parallel and writes the results in one
// transaction.
func (l *Library) processFiles(
	ctx context.Context,
	files []fileInfo,
	isNew map[string]bool,
	existing map[string]existingTrack,
	stats *ScanStats,
	progress chan<- ScanProgress,
) error {
	total := len(files)
	var processed atomic.Int64

	workCh := make(chan fileInfo, total)
	resultCh := make(chan trackResult, total)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for f := range workCh {
				if ctx.Err() == nil {
					if t := readFileTrack(f.path); t != nil {
						resultCh <- trackResult{file: f, track: t, isNew: isNew[f.path]}
					}
				}
				processed.Add(1)
			}
		})
	}

	for _, f := range files {
		workCh <- f
	}
	close(workCh)

	done := make(chan struct{})
	var reporter sync.WaitGroup
	reporter.Go(func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case progress <- ScanProgress{Phase: PhaseProcessing, Current: int(processed.Load()), Total: total}:
				default:
				}
			case <-done:
				return
			}
		}
	})

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var results []trackResult
	for r := range resultCh {
		results = append(results, r)
	}
	close(done)
	reporter.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().Unix()
	err := db.WithTx(l.db, func(tx *sql.Tx) error {
		for _, r := range results {
			if prev, ok := existing[r.file.path]; ok {
				r.track.ID = prev.id
				r.track.PlayCount = prev.plays
			}
			if err := insertTrack(tx, r.track, r.file.path, r.file.root, r.file.mtime, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.isNew {
			stats.Added = append(stats.Added, r.file.path)
		} else {
			stats.Updated = append(stats.Updated, r.file.path)
		}
	}
	progress <- ScanProgress{Phase: PhaseProcessing, Current: total, Total: total}
	return nil
}

// readFileTrack reads a file's metadata, using folder art when the file
// has none embedded. It returns nil when the file cannot be opened.
func readFileTrack(path string) *Track {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	name := filepath.Base(path)
	t := newTrack(name, ReadMetadata(f, name))
	if t.Picture == nil {
		t.Picture = FolderArt(filepath.Dir(path))
	}
	return t
}

func underRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
