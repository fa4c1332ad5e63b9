// internal/player/mock.go
package player

import (
	"io"
	"sync"
	"time"
)

// Mock is a test double for Player.
type Mock struct {
	mu sync.Mutex

	state     State
	position  time.Duration
	duration  time.Duration
	volume    float64
	playErr   error
	playCalls []string
	seekCalls []time.Duration
	bound     io.ReadSeeker
	onEnded   func()
	ended     bool
}

// NewMock creates a new mock player for testing.
func NewMock() *Mock {
	return &Mock{
		state:  Stopped,
		volume: 1,
	}
}

func (m *Mock) Play(src io.ReadSeeker, ext string, onEnded func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playCalls = append(m.playCalls, ext)
	m.state = Stopped
	m.bound = nil
	m.onEnded = nil
	if m.playErr != nil {
		return m.playErr
	}
	m.bound = src
	m.onEnded = onEnded
	m.ended = false
	m.position = 0
	m.state = Playing
	return nil
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Stopped
	m.bound = nil
	m.onEnded = nil
	m.ended = false
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Playing {
		m.state = Paused
	}
}

// Resume resumes a paused source. Like Player, an ended source restarts
// from the beginning.
func (m *Mock) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Paused {
		return
	}
	if m.ended {
		m.position = 0
		m.ended = false
	}
	m.state = Playing
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) SeekTo(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	m.position = pos
	if m.duration == 0 || pos < m.duration {
		m.ended = false
	}
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = level
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Test helpers

func (m *Mock) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

func (m *Mock) PlayCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.playCalls...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

// Bound returns the reader passed to the last successful Play, or nil after Stop.
func (m *Mock) Bound() io.ReadSeeker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bound
}

// SimulateEnded plays the bound source to its end and runs the end callback
// on the calling goroutine.
func (m *Mock) SimulateEnded() {
	m.mu.Lock()
	fn := m.onEnded
	if m.state == Playing {
		m.state = Paused
	}
	m.ended = true
	m.position = m.duration
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
