// Package mediasession mirrors the playback engine onto an OS now-playing
// surface and routes the surface's transport commands back to the engine.
package mediasession

import "time"

// PlaybackState is the state shown on the surface.
type PlaybackState string

const (
	StateNone    PlaybackState = "none"
	StatePaused  PlaybackState = "paused"
	StatePlaying PlaybackState = "playing"
)

// Action is a transport command a surface can send.
type Action string

const (
	ActionPlay          Action = "play"
	ActionPause         Action = "pause"
	ActionNextTrack     Action = "nexttrack"
	ActionPreviousTrack Action = "previoustrack"
	ActionSeekTo        Action = "seekto"
	ActionSeekBackward  Action = "seekbackward"
	ActionSeekForward   Action = "seekforward"
)

// ActionDetails carries the arguments of an action.
type ActionDetails struct {
	Action   Action
	SeekTime float64 // seconds, for seekto
}

// ActionHandler handles one action.
type ActionHandler func(ActionDetails)

// Metadata describes the current track.
type Metadata struct {
	TrackID    string
	Title      string
	Artists    []string
	Album      string
	Length     time.Duration
	ArtworkURL string
}

// Surface is an OS-level now-playing surface.
type Surface interface {
	SetPlaybackState(PlaybackState)
	// SetMetadata shows m; nil clears the surface.
	SetMetadata(m *Metadata)
	// SetActionHandler registers h for a; a nil h disables the action.
	SetActionHandler(a Action, h ActionHandler)
}

// Nop is a Surface that discards everything.
type Nop struct{}

func (Nop) SetPlaybackState(PlaybackState) {}

func (Nop) SetMetadata(*Metadata) {}

func (Nop) SetActionHandler(Action, ActionHandler) {}
