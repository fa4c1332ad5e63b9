package library

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"github.com/llehouerou/cadence/internal/player"
)

// Fallback values for files whose tags cannot be read.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownFormat = "unknown"
)

// Metadata is what the library knows about a file's contents.
type Metadata struct {
	Title      string
	Artist     string
	Album      string
	Format     string
	Duration   int64 // ms
	Bitrate    int   // kbps
	SampleRate int   // Hz
	Picture    *Picture
}

// ReadMetadata reads tags and stream properties from r. It never fails:
// unreadable tags fall back to the file name and unknown placeholders, and
// an undecodable stream leaves the duration at zero.
func ReadMetadata(r io.ReadSeeker, fileName string) Metadata {
	md := Metadata{
		Title:  fileName,
		Artist: UnknownArtist,
		Album:  UnknownAlbum,
		Format: UnknownFormat,
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return md
	}
	m, err := tag.ReadFrom(r)
	if err == nil {
		if v := strings.TrimSpace(m.Title()); v != "" {
			md.Title = v
		}
		if v := strings.TrimSpace(m.Artist()); v != "" {
			md.Artist = v
		}
		if v := strings.TrimSpace(m.Album()); v != "" {
			md.Album = v
		}
		if ft := m.FileType(); ft != "" && ft != tag.UnknownFileType {
			md.Format = strings.ToLower(string(ft))
		}
		if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
			md.Picture = &Picture{Data: pic.Data, MIMEType: pic.MIMEType}
		}
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !player.CanDecode(ext) {
		return md
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return md
	}
	info, err := player.Probe(r, ext)
	if err != nil {
		return md
	}
	md.Duration = info.Duration.Milliseconds()
	md.SampleRate = info.SampleRate

	size, err := r.Seek(0, io.SeekEnd)
	if err == nil && info.Duration > 0 {
		md.Bitrate = int(float64(size*8) / info.Duration.Seconds() / 1000)
	}
	return md
}

// newTrack creates a track with a fresh id from md.
func newTrack(fileName string, md Metadata) *Track {
	return &Track{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Title:      md.Title,
		Artist:     md.Artist,
		Album:      md.Album,
		Duration:   msDuration(md.Duration),
		Bitrate:    md.Bitrate,
		SampleRate: md.SampleRate,
		Format:     md.Format,
		Picture:    md.Picture,
	}
}

func readTrack(data []byte, fileName string) *Track {
	return newTrack(fileName, ReadMetadata(bytes.NewReader(data), fileName))
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
