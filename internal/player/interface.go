// internal/player/interface.go
package player

import (
	"io"
	"time"
)

// Interface defines the output contract for dependency injection and testing.
type Interface interface {
	Play(src io.ReadSeeker, ext string, onEnded func()) error
	Stop()
	Pause()
	Resume()
	State() State
	Position() time.Duration
	Duration() time.Duration
	SeekTo(pos time.Duration)
	SetVolume(level float64)
	Volume() float64
}

// Verify Player implements Interface at compile time.
var _ Interface = (*Player)(nil)
