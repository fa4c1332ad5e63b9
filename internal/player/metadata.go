package player

import (
	"io"
	"path/filepath"
	"strings"
	"time"
)

// StreamInfo describes a decodable source.
type StreamInfo struct {
	Duration   time.Duration
	SampleRate int
	BitDepth   int
}

// Probe decodes the stream header to learn its length and sample rate.
// The reader is left at an unspecified offset.
func Probe(r io.ReadSeeker, ext string) (StreamInfo, error) {
	streamer, format, err := decode(r, ext)
	if err != nil {
		return StreamInfo{}, err
	}
	defer streamer.Close()

	return StreamInfo{
		Duration:   format.SampleRate.D(streamer.Len()),
		SampleRate: int(format.SampleRate),
		BitDepth:   format.Precision * 8,
	}, nil
}

// IsMusicFile reports whether the library indexes files with this name.
func IsMusicFile(path string) bool {
	return CanDecode(filepath.Ext(path))
}

// CanDecode reports whether a decoder exists for the extension.
func CanDecode(ext string) bool {
	switch strings.ToLower(ext) {
	case extMP3, extFLAC, extWAV, extOGG, extM4A:
		return true
	}
	return false
}
