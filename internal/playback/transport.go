package playback

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/gesture"
	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/player"
)

// loadOptions tweak a single load.
type loadOptions struct {
	skipHistory bool
	// popHistory pops the history top on commit if it is still the target.
	popHistory bool
	// queue replaces the queue on commit when non-nil.
	queue []*library.Track
}

// PlayTrack plays t. When queue is non-nil it becomes the new queue once t
// is bound. Playing the current track again toggles play/pause instead.
//
// On a resolution error nothing changes: the prior track keeps playing.
// On a start error the prior source is already released, so the engine is
// left Failed with the prior track still current.
func (e *Engine) PlayTrack(ctx context.Context, t *library.Track, queue []*library.Track) error {
	if t == nil {
		return nil
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.current != nil && e.current.ID == t.ID {
		if queue != nil {
			e.replaceQueueLocked(queue)
			e.schedulePreloadLocked()
		}
		e.mu.Unlock()
		return e.TogglePlay(ctx)
	}
	e.mu.Unlock()

	return e.load(ctx, t, loadOptions{queue: queue})
}

// PlayNext moves to the next track. With shuffle on the target is drawn
// uniformly from the queue and may be the current track. Otherwise it is a
// no-op when the current track is last or not in the queue.
func (e *Engine) PlayNext(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	next := e.nextLocked()
	e.mu.Unlock()

	if next == nil {
		return nil
	}
	return e.load(ctx, next, loadOptions{})
}

func (e *Engine) nextLocked() *library.Track {
	if e.shuffle {
		return e.queue.Random(e.intn)
	}
	if e.current == nil {
		return nil
	}
	return e.queue.After(e.current.ID)
}

// PlayPrevious restarts the current track when more than the restart
// threshold has elapsed. Otherwise, with shuffle on, it returns to the track
// played before; without history or shuffle it moves to the queue
// predecessor and is a no-op at the queue start.
func (e *Engine) PlayPrevious(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.current == nil {
		e.mu.Unlock()
		return nil
	}

	if e.active != nil && e.output.Position() > e.restartThreshold {
		e.seekLocked(0)
		e.mu.Unlock()
		return nil
	}

	var (
		prev *library.Track
		opts loadOptions
	)
	if top, ok := e.history.Peek(); e.shuffle && ok {
		prev = top
		opts = loadOptions{skipHistory: true, popHistory: true}
	} else {
		prev = e.queue.Before(e.current.ID)
	}
	e.mu.Unlock()

	if prev == nil {
		return nil
	}
	return e.load(ctx, prev, opts)
}

// TogglePlay flips between playing and paused. It is a no-op without a
// current track. After a failed start it reloads the current track.
func (e *Engine) TogglePlay(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.current == nil {
		e.mu.Unlock()
		return nil
	}

	switch e.status {
	case StatusPlaying:
		e.output.Pause()
		e.setStatusLocked(StatusPaused)
	case StatusPaused:
		if e.endReported {
			// The output restarts an ended source from the beginning.
			e.endReported = false
			e.seekedToEnd = false
		}
		e.output.Resume()
		e.setStatusLocked(StatusPlaying)
	case StatusFailed:
		t := e.current
		e.mu.Unlock()
		return e.load(ctx, t, loadOptions{skipHistory: true})
	case StatusIdle, StatusLoading:
		// Nothing bound yet
	}
	e.mu.Unlock()
	return nil
}

// Seek moves to seconds in the current track, clamped to [0, duration].
// Non-finite input is ignored. The play/pause state is unchanged.
func (e *Engine) Seek(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.active == nil {
		return
	}
	e.seekLocked(time.Duration(seconds * float64(time.Second)))
}

func (e *Engine) seekLocked(pos time.Duration) {
	pos = max(pos, 0)
	dur := e.output.Duration()
	if dur > 0 {
		pos = min(pos, dur)
	}

	e.output.SeekTo(pos)

	// An end reached by seeking is not a natural end; leaving the end
	// allows the next natural end to be reported.
	e.seekedToEnd = dur > 0 && pos >= dur
	if !e.seekedToEnd {
		e.endReported = false
	}
	e.emitPosition(pos)
}

// ChangeVolume sets the output level, clamped to [0,1]. Non-finite input is
// ignored.
func (e *Engine) ChangeVolume(level float64) {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return
	}
	level = clampUnit(level)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.output.SetVolume(level)
	changed := e.volume != level
	e.volume = level
	e.mu.Unlock()

	if !changed {
		return
	}
	e.emitVolume(VolumeChange{Level: level})
	if e.settings != nil {
		if err := e.settings.SaveVolume(level); err != nil {
			e.log.Warn("save volume", zap.Error(err))
		}
	}
}

// ToggleShuffle flips shuffle and returns the new value. Queue order and
// history are left as they are.
func (e *Engine) ToggleShuffle() bool {
	e.mu.Lock()
	on := !e.shuffle
	e.shuffle = on
	e.schedulePreloadLocked()
	e.mu.Unlock()

	e.shuffleChanged(on)
	return on
}

// SetShuffle turns shuffle on or off. Setting the current value is a no-op.
func (e *Engine) SetShuffle(on bool) {
	e.mu.Lock()
	if e.shuffle == on {
		e.mu.Unlock()
		return
	}
	e.shuffle = on
	e.schedulePreloadLocked()
	e.mu.Unlock()

	e.shuffleChanged(on)
}

func (e *Engine) shuffleChanged(on bool) {
	e.emitMode(ModeChange{Shuffle: on})
	if e.settings != nil {
		if err := e.settings.SaveShuffle(on); err != nil {
			e.log.Warn("save shuffle", zap.Error(err))
		}
	}
}

func (e *Engine) replaceQueueLocked(tracks []*library.Track) {
	e.queue.Replace(tracks)
	e.emitQueue(QueueChange{Tracks: e.queue.Tracks()})
}

// load resolves t, swaps it onto the output and commits it as current.
func (e *Engine) load(ctx context.Context, t *library.Track, opts loadOptions) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.requestToken++
	token := e.requestToken
	prevStatus := e.status
	if prevStatus == StatusLoading {
		// A superseded load never settles, so keep the status it started from.
		prevStatus = e.settledStatusLocked()
	}
	e.setStatusLocked(StatusLoading)
	e.mu.Unlock()

	src, err := e.resolver.Resolve(ctx, t)

	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.requestToken {
		e.log.Debug("discarding superseded load", zap.String("track", t.ID))
		e.releaseSource(src)
		return nil
	}

	if err != nil {
		e.log.Warn("resolve failed", zap.String("track", t.ID), zap.Error(err))
		e.lastErr = err
		e.setStatusLocked(StatusFailed)
		e.emitError(ErrorEvent{Operation: "resolve", TrackID: t.ID, Err: err})
		switch {
		case e.current == nil:
			e.setStatusLocked(StatusIdle)
		case prevStatus != StatusFailed:
			// The prior track is untouched and still bound.
			e.setStatusLocked(prevStatus)
		}
		return err
	}

	e.output.Stop()
	e.releaseSource(e.active)
	e.active = nil
	e.generation++
	gen := e.generation

	if err := e.output.Play(src.Reader(), src.Ext(), func() { e.handleEnded(gen) }); err != nil {
		e.releaseSource(src)
		serr := &StartError{TrackID: t.ID, Err: err}
		e.log.Warn("start failed", zap.String("track", t.ID), zap.Error(err))
		e.lastErr = serr
		e.setStatusLocked(StatusFailed)
		e.emitError(ErrorEvent{Operation: "play", TrackID: t.ID, Err: serr})
		return serr
	}

	prev := e.current
	e.active = src
	e.lastErr = nil
	e.endReported = false
	e.seekedToEnd = false
	if opts.popHistory {
		if top, ok := e.history.Peek(); ok && top == t {
			e.history.Pop()
		}
	}
	if !opts.skipHistory && prev != nil && prev.ID != t.ID {
		e.history.Push(prev)
	}
	if opts.queue != nil {
		e.replaceQueueLocked(opts.queue)
	}
	e.current = t
	e.setStatusLocked(StatusPlaying)
	if prev != t {
		e.emitTrack(TrackChange{Previous: prev, Current: t})
	}
	e.emitPosition(0)
	e.schedulePreloadLocked()

	e.log.Info("playing",
		zap.String("track", t.ID),
		zap.String("title", t.Title),
		zap.Uint64("source", src.ID()))
	return nil
}

// settledStatusLocked derives a stable status from what is bound.
func (e *Engine) settledStatusLocked() Status {
	switch {
	case e.current == nil:
		return StatusIdle
	case e.active == nil:
		return StatusFailed
	case e.output.State() == player.Playing:
		return StatusPlaying
	default:
		return StatusPaused
	}
}

// handleEnded runs when the source bound as gen has played to its end.
func (e *Engine) handleEnded(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.generation || e.current == nil {
		e.mu.Unlock()
		return
	}
	t := e.current
	notify := !e.seekedToEnd && !e.endReported
	e.endReported = true
	e.seekedToEnd = false

	// The output stops at the end; an advance that fails leaves it paused.
	e.setStatusLocked(StatusPaused)
	next := e.nextLocked()
	e.mu.Unlock()

	if notify && e.finished != nil {
		e.finished(t)
	}
	if next == nil {
		return
	}

	// Advancing is not a user action and must not prompt.
	ctx := gesture.Without(context.Background())
	if err := e.load(ctx, next, loadOptions{}); err != nil {
		e.log.Warn("advance failed", zap.String("track", next.ID), zap.Error(err))
	}
}

// schedulePreloadLocked points the preload slot at the deterministic next
// track, or empties it when there is none or shuffle is on.
func (e *Engine) schedulePreloadLocked() {
	if !e.preload || e.closed {
		return
	}
	var next *library.Track
	if !e.shuffle && e.current != nil {
		next = e.queue.After(e.current.ID)
	}

	e.preloadSeq++
	seq := e.preloadSeq
	e.preloadWG.Add(1)
	go func() {
		defer e.preloadWG.Done()
		e.preloadMu.Lock()
		defer e.preloadMu.Unlock()

		e.mu.Lock()
		stale := seq != e.preloadSeq || e.closed
		e.mu.Unlock()
		if stale {
			return
		}
		e.resolver.Preload(context.Background(), next)
	}()
}
