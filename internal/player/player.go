package player

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// Supported container extensions.
const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extWAV  = ".wav"
	extOGG  = ".ogg"
	extM4A  = ".m4a"
)

// ErrUnsupportedFormat is returned when no decoder handles the container.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Player is the single audio output. It decodes one source at a time and
// plays it through the speaker.
//
// The Player never closes the reader it is given: the caller owns the byte
// source and releases it after Stop.
type Player struct {
	mu sync.Mutex

	state    State
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	streamer beep.StreamSeekCloser
	format   beep.Format
	ended    atomic.Bool

	volumeLevel float64
}

var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

// New creates a stopped player at full volume.
func New() *Player {
	return &Player{
		state:       Stopped,
		volumeLevel: 1,
	}
}

// State returns the output state. A source that played to its end reports Paused.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Playing && p.ended.Load() {
		return Paused
	}
	return p.state
}

// Duration returns the length of the bound source.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

// readSeekNopCloser keeps decoders from closing a caller-owned reader while
// preserving io.Seeker, which io.NopCloser would hide.
type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error { return nil }
