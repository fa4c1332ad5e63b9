package library

import (
	"path/filepath"
	"strings"
	"time"
)

// Picture is embedded or folder cover art.
type Picture struct {
	Data     []byte
	MIMEType string
}

// Track is a library entry.
//
// A track is backed by at most one of Blob (file bytes held for the current
// session only, never persisted) or Handle (a persisted reference that can
// re-open the file on demand once read permission is granted). A track with
// neither is a zombie: its metadata survives but it cannot be played until it
// is added again.
type Track struct {
	ID         string
	FileName   string // base name, used for decoder selection and title fallback
	Title      string
	Artist     string // raw tag value, may name several artists
	Album      string
	Duration   time.Duration
	Bitrate    int // kbps
	SampleRate int // Hz
	Format     string
	Picture    *Picture
	PlayCount  int

	Blob   []byte
	Handle Handle
}

// Playable reports whether the track has a blob or a handle.
func (t *Track) Playable() bool {
	return t != nil && (t.Blob != nil || t.Handle != nil)
}

// IsZombie reports whether the track has metadata only.
func (t *Track) IsZombie() bool {
	return t != nil && !t.Playable()
}

// Artists returns the individual artist names of the track.
func (t *Track) Artists() []string {
	return SplitArtists(t.Artist)
}

// Ext returns the lowercased file extension including the dot.
func (t *Track) Ext() string {
	return strings.ToLower(filepath.Ext(t.FileName))
}

// UserDataKey identifies the track across libraries in exported user data.
func (t *Track) UserDataKey() string {
	return t.Artist + "|" + t.Title
}
