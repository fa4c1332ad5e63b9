// Package playback owns the now-playing state machine.
//
// The Engine binds one source at a time to the output, walks the queue for
// next and previous, keeps a history stack for shuffle, and keeps the
// resolver's preload slot pointed at the deterministic next track.
// Operations may be called from any goroutine.
package playback

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/playlist"
	"github.com/llehouerou/cadence/internal/source"
)

// DefaultRestartThreshold is the elapsed time past which PlayPrevious
// restarts the current track instead of moving back.
const DefaultRestartThreshold = 3 * time.Second

// Settings persists user preferences the engine owns.
type Settings interface {
	SaveVolume(level float64) error
	SaveShuffle(on bool) error
}

// Options configures an Engine. The zero value is usable.
type Options struct {
	Logger           *zap.Logger
	HistoryLimit     int
	RestartThreshold time.Duration
	DisablePreload   bool
	Settings         Settings

	// OnTrackFinished runs at most once per natural end of a track. It is
	// not called for ends reached by seeking, for next/previous, or pause.
	OnTrackFinished func(*library.Track)

	// Intn picks shuffle targets. It must return a value in [0, n).
	Intn func(n int) int
}

// Engine is the playback engine.
type Engine struct {
	mu sync.Mutex

	log      *zap.Logger
	output   player.Interface
	resolver *source.Resolver
	settings Settings
	finished func(*library.Track)
	intn     func(int) int

	restartThreshold time.Duration
	preload          bool

	status  Status
	current *library.Track
	active  *source.Source
	queue   *playlist.Queue
	history *playlist.History
	shuffle bool
	volume  float64
	lastErr error

	// requestToken identifies the latest load; older loads discard their result.
	requestToken uint64
	// generation identifies the latest bind; older end callbacks are ignored.
	generation uint64
	endReported bool
	seekedToEnd bool

	preloadMu  sync.Mutex
	preloadSeq uint64
	preloadWG  sync.WaitGroup

	subs       []*Subscription
	subsClosed bool
	subsMu     sync.RWMutex

	closed bool
}

// New creates an engine that plays through output, resolving tracks with
// resolver.
func New(output player.Interface, resolver *source.Resolver, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if resolver == nil {
		resolver = source.NewResolver(log, nil)
	}
	threshold := opts.RestartThreshold
	if threshold <= 0 {
		threshold = DefaultRestartThreshold
	}
	intn := opts.Intn
	if intn == nil {
		intn = rand.IntN
	}
	return &Engine{
		log:              log.Named("playback"),
		output:           output,
		resolver:         resolver,
		settings:         opts.Settings,
		finished:         opts.OnTrackFinished,
		intn:             intn,
		restartThreshold: threshold,
		preload:          !opts.DisablePreload,
		queue:            playlist.NewQueue(),
		history:          playlist.NewHistory(opts.HistoryLimit),
		volume:           output.Volume(),
	}
}

// Restore applies saved preferences without persisting them again.
func (e *Engine) Restore(volume float64, shuffle bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = clampUnit(volume)
	e.output.SetVolume(e.volume)
	e.shuffle = shuffle
}

// Status returns the current engine status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// IsPlaying reports whether audio is playing.
func (e *Engine) IsPlaying() bool {
	return e.Status() == StatusPlaying
}

// CurrentTrack returns the current track, or nil if none.
func (e *Engine) CurrentTrack() *library.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Position returns the elapsed time in the current track.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return 0
	}
	return e.output.Position()
}

// Duration returns the current track's length.
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationLocked()
}

func (e *Engine) durationLocked() time.Duration {
	if e.active != nil {
		if d := e.output.Duration(); d > 0 {
			return d
		}
	}
	if e.current != nil {
		return e.current.Duration
	}
	return 0
}

// Volume returns the output level in [0,1].
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Shuffle returns whether shuffle is enabled.
func (e *Engine) Shuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuffle
}

// Queue returns a copy of the queue.
func (e *Engine) Queue() []*library.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Tracks()
}

// History returns the shuffle history, oldest first.
func (e *Engine) History() []*library.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Tracks()
}

// LastError returns the error of the last failed load, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Resolver returns the resolver backing the engine.
func (e *Engine) Resolver() *source.Resolver {
	return e.resolver
}

// Subscribe creates a new event subscription.
func (e *Engine) Subscribe() *Subscription {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	sub := newSubscription()
	if e.subsClosed {
		sub.close()
		return sub
	}
	e.subs = append(e.subs, sub)
	return sub
}

// Close stops the output, releases every source and signals subscribers.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.requestToken++
	e.generation++
	e.output.Stop()
	active := e.active
	e.active = nil
	e.mu.Unlock()

	e.releaseSource(active)
	e.preloadWG.Wait()
	e.resolver.Close()

	e.subsMu.Lock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	e.subsClosed = true
	e.subsMu.Unlock()

	return nil
}

func (e *Engine) releaseSource(src *source.Source) {
	if err := src.Release(); err != nil {
		e.log.Warn("release source",
			zap.Uint64("source", src.ID()),
			zap.String("track", src.TrackID()),
			zap.Error(err))
	}
}

// setStatusLocked updates the status and notifies on change.
func (e *Engine) setStatusLocked(s Status) {
	if e.status == s {
		return
	}
	prev := e.status
	e.status = s
	e.emitStatus(StatusChange{Previous: prev, Current: s})
}

func (e *Engine) emitStatus(ev StatusChange) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendStatus(ev)
	}
}

func (e *Engine) emitTrack(ev TrackChange) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendTrack(ev)
	}
}

func (e *Engine) emitPosition(pos time.Duration) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendPosition(pos)
	}
}

func (e *Engine) emitQueue(ev QueueChange) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendQueue(ev)
	}
}

func (e *Engine) emitMode(ev ModeChange) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendMode(ev)
	}
}

func (e *Engine) emitVolume(ev VolumeChange) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendVolume(ev)
	}
}

func (e *Engine) emitError(ev ErrorEvent) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		sub.sendError(ev)
	}
}

func clampUnit(v float64) float64 {
	return max(0, min(1, v))
}
