package state

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS library_tracks (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			path TEXT UNIQUE,
			root TEXT,
			mtime INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT NOT NULL,
			duration_ms INTEGER,
			bitrate INTEGER,
			sample_rate INTEGER,
			format TEXT,
			picture BLOB,
			picture_mime TEXT,
			play_count INTEGER NOT NULL DEFAULT 0,
			added_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_added_at ON library_tracks(added_at);
		CREATE INDEX IF NOT EXISTS idx_tracks_root ON library_tracks(root);

		CREATE TABLE IF NOT EXISTS library_sources (
			path TEXT PRIMARY KEY,
			added_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
	return err
}
