package player

import (
	"sync/atomic"

	"github.com/gopxl/beep/v2"
)

var _ beep.Streamer = (*endDetector)(nil)

// endDetector keeps the output alive past the end of its source.
//
// When the wrapped streamer is exhausted it pauses the controlling Ctrl,
// fills the rest of the buffer with silence, and reports the end once. The
// source stays bound so a later Resume or SeekTo can replay it.
//
// Stream runs on the speaker goroutine with the speaker lock held, so it must
// not take the player mutex.
type endDetector struct {
	beep.Streamer
	ctrl    *beep.Ctrl
	ended   *atomic.Bool
	onEnded func()
}

// Stream implements beep.Streamer.
func (e *endDetector) Stream(samples [][2]float64) (n int, ok bool) {
	if e.ended.Load() {
		clear(samples)
		return len(samples), true
	}

	n, ok = e.Streamer.Stream(samples)

	// Partial read: probe once more to tell a short read from exhaustion.
	if n < len(samples) && ok {
		n2, ok2 := e.Streamer.Stream(samples[n:])
		n += n2
		ok = ok2
	}

	if ok {
		return n, true
	}

	clear(samples[n:])
	if e.ended.CompareAndSwap(false, true) {
		if e.ctrl != nil {
			e.ctrl.Paused = true
		}
		if e.onEnded != nil {
			go e.onEnded()
		}
	}
	return len(samples), true
}
