package player

import (
	"time"

	"github.com/gopxl/beep/v2/speaker"
)

// Stop unbinds the current source. The reader passed to Play is not closed.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Stopped {
		return
	}

	speaker.Clear()

	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}

	p.ctrl = nil
	p.volume = nil
	p.ended.Store(false)
	p.state = Stopped
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.state = Paused
}

// Resume resumes paused playback. A source that played to its end restarts
// from the beginning.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Stopped || p.ctrl == nil {
		return
	}
	if p.state == Playing && !p.ended.Load() {
		return
	}

	speaker.Lock()
	if p.ended.Load() {
		_ = p.streamer.Seek(0)
		p.ended.Store(false)
	}
	p.ctrl.Paused = false
	speaker.Unlock()
	p.state = Playing
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos)
}

// SeekTo moves playback to an absolute position, clamped to the source.
// Seeking to the end makes the output report the end of the source.
func (p *Player) SeekTo(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil || !p.state.IsActive() {
		return
	}

	n := p.format.SampleRate.N(pos)

	speaker.Lock()
	defer speaker.Unlock()

	n = min(max(n, 0), p.streamer.Len())
	_ = p.streamer.Seek(n)

	// Leaving the end keeps the output paused where the end left it.
	if n < p.streamer.Len() && p.ended.Load() {
		p.ended.Store(false)
		p.state = Paused
	}
}
