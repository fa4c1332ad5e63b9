package mediasession

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/gesture"
	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/playback"
)

// Engine is the part of the playback engine the bridge drives.
type Engine interface {
	Subscribe() *playback.Subscription
	CurrentTrack() *library.Track
	IsPlaying() bool
	TogglePlay(ctx context.Context) error
	PlayNext(ctx context.Context) error
	PlayPrevious(ctx context.Context) error
	Seek(seconds float64)
}

var _ Engine = (*playback.Engine)(nil)

// Bridge keeps a Surface in sync with the engine.
type Bridge struct {
	log     *zap.Logger
	engine  Engine
	surface Surface
	artwork *ArtworkStore

	mu      sync.Mutex
	trackID string
	state   PlaybackState

	sub  *playback.Subscription
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewBridge creates a bridge. A nil artwork store disables artwork.
func NewBridge(engine Engine, surface Surface, artwork *ArtworkStore, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		log:     log.Named("mediasession"),
		engine:  engine,
		surface: surface,
		artwork: artwork,
		done:    make(chan struct{}),
	}
}

// Start mirrors the current state and follows engine events until Close.
func (b *Bridge) Start() {
	b.sub = b.engine.Subscribe()
	b.Sync()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.run()
	}()
}

func (b *Bridge) run() {
	for {
		select {
		case <-b.done:
			return
		case <-b.sub.Done:
			return
		case <-b.sub.StatusChanged:
		case <-b.sub.TrackChanged:
		}
		b.Sync()
	}
}

// Sync pushes the engine state to the surface. Metadata, artwork and
// handlers are refreshed only when the current track changed.
func (b *Bridge) Sync() {
	track := b.engine.CurrentTrack()
	state := StateNone
	switch {
	case b.engine.IsPlaying():
		state = StatePlaying
	case track != nil:
		state = StatePaused
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := ""
	if track != nil {
		id = track.ID
	}
	if id != b.trackID || b.state == "" {
		b.trackID = id
		b.applyTrackLocked(track)
	}
	if state != b.state {
		b.state = state
		b.surface.SetPlaybackState(state)
	}
}

func (b *Bridge) applyTrackLocked(track *library.Track) {
	if track == nil {
		if b.artwork != nil {
			b.artwork.Release()
		}
		b.surface.SetMetadata(nil)
		return
	}

	meta := &Metadata{
		TrackID: track.ID,
		Title:   track.Title,
		Artists: track.Artists(),
		Album:   track.Album,
		Length:  track.Duration,
	}
	if meta.Title == "" {
		meta.Title = track.FileName
	}
	if b.artwork != nil {
		u, err := b.artwork.Set(track.Picture)
		if err != nil {
			b.log.Warn("publish artwork", zap.String("track", track.ID), zap.Error(err))
		}
		meta.ArtworkURL = u
	}
	b.surface.SetMetadata(meta)

	// Some surfaces drop handlers when the source changes.
	b.registerHandlersLocked()
}

func (b *Bridge) registerHandlersLocked() {
	b.surface.SetActionHandler(ActionPlay, func(ActionDetails) {
		if !b.engine.IsPlaying() {
			b.call("play", b.engine.TogglePlay)
		}
	})
	b.surface.SetActionHandler(ActionPause, func(ActionDetails) {
		if b.engine.IsPlaying() {
			b.call("pause", b.engine.TogglePlay)
		}
	})
	b.surface.SetActionHandler(ActionNextTrack, func(ActionDetails) {
		b.call("next", b.engine.PlayNext)
	})
	b.surface.SetActionHandler(ActionPreviousTrack, func(ActionDetails) {
		b.call("previous", b.engine.PlayPrevious)
	})
	b.surface.SetActionHandler(ActionSeekTo, func(d ActionDetails) {
		b.engine.Seek(d.SeekTime)
	})
	b.surface.SetActionHandler(ActionSeekBackward, nil)
	b.surface.SetActionHandler(ActionSeekForward, nil)
}

// call runs an engine operation as a user action.
func (b *Bridge) call(op string, fn func(context.Context) error) {
	if err := fn(gesture.With(context.Background())); err != nil {
		b.log.Warn("media action failed", zap.String("action", op), zap.Error(err))
	}
}

// Close stops following the engine and releases the artwork.
func (b *Bridge) Close() error {
	b.once.Do(func() {
		close(b.done)
		b.wg.Wait()

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.artwork != nil {
			b.artwork.Release()
		}
		b.surface.SetMetadata(nil)
		b.surface.SetPlaybackState(StateNone)
		b.trackID = ""
		b.state = StateNone
	})
	return nil
}
