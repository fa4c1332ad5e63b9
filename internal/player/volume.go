package player

import (
	"math"

	"github.com/gopxl/beep/v2/speaker"
)

// SetVolume sets the output level, clamped to [0,1]. Level 0 is silent.
func (p *Player) SetVolume(level float64) {
	level = min(max(level, 0), 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volumeLevel = level
	if p.volume != nil {
		speaker.Lock()
		p.volume.Volume = levelToVolume(level)
		p.volume.Silent = level == 0
		speaker.Unlock()
	}
}

// Volume returns the output level.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volumeLevel
}

// levelToVolume maps a linear level onto beep's base-2 gain:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
