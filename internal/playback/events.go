package playback

import (
	"time"

	"github.com/llehouerou/cadence/internal/library"
)

// StatusChange is emitted when the engine status changes.
type StatusChange struct {
	Previous Status
	Current  Status
}

// TrackChange is emitted when a different track becomes current.
//
// Emitted by:
//   - PlayTrack/PlayNext/PlayPrevious: once the new source is bound
//   - natural end: when the engine advances on its own
//
// NOT emitted by:
//   - failed or superseded loads: the current track does not change
//   - TogglePlay/Seek/restart: the track stays the same
type TrackChange struct {
	Previous *library.Track
	Current  *library.Track
}

// QueueChange is emitted when the queue is replaced.
type QueueChange struct {
	Tracks []*library.Track
}

// ModeChange is emitted when shuffle is toggled.
type ModeChange struct {
	Shuffle bool
}

// PositionChange is emitted when a seek or restart occurs.
type PositionChange struct {
	Position time.Duration
}

// VolumeChange is emitted when the volume changes.
type VolumeChange struct {
	Level float64
}

// ErrorEvent is emitted when an operation fails.
type ErrorEvent struct {
	Operation string // e.g., "play", "advance"
	TrackID   string
	Err       error
}
