// internal/playback/status.go
package playback

// Status is the engine's position in the playback state machine.
//
//	Idle ──PlayTrack──▶ Loading ──bound──▶ Playing ◀──toggle──▶ Paused
//	                      │                   │
//	                      └──error──▶ Failed  └──next/previous──▶ Loading
type Status int

const (
	StatusIdle    Status = iota // no track loaded
	StatusLoading               // resolving or binding a source
	StatusPlaying
	StatusPaused
	StatusFailed // last attempt errored, no track became current
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is bound (playing or paused).
func (s Status) IsActive() bool {
	return s == StatusPlaying || s == StatusPaused
}
