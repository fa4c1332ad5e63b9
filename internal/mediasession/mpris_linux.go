//go:build linux

package mediasession

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"go.uber.org/zap"
)

// errNotSupported is returned for MPRIS calls with no registered action.
var errNotSupported = errors.New("not supported")

// MPRISOptions configures the MPRIS surface.
type MPRISOptions struct {
	Name     string // bus name suffix, org.mpris.MediaPlayer2.<Name>
	Identity string
	Position func() time.Duration
	Volume   func() float64
	// Shuffle and SetShuffle expose the shuffle flag; nil reports it off
	// and read-only.
	Shuffle    func() bool
	SetShuffle func(bool)
	Logger     *zap.Logger
}

// MPRIS is a Surface exported over D-Bus.
type MPRIS struct {
	server *server.Server
	log    *zap.Logger
	opts   MPRISOptions

	mu       sync.RWMutex
	state    PlaybackState
	meta     *Metadata
	handlers map[Action]ActionHandler
}

var _ Surface = (*MPRIS)(nil)

// NewMPRIS creates the surface and starts serving it.
func NewMPRIS(opts MPRISOptions) (*MPRIS, error) {
	if opts.Name == "" {
		opts.Name = "cadence"
	}
	if opts.Identity == "" {
		opts.Identity = "Cadence"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &MPRIS{
		log:      opts.Logger.Named("mpris"),
		opts:     opts,
		state:    StateNone,
		handlers: make(map[Action]ActionHandler),
	}

	m.server = server.NewServer(opts.Name, &rootAdapter{identity: opts.Identity}, &playerAdapter{m: m})

	// Start the server in background
	go func() {
		if err := m.server.Listen(); err != nil {
			m.log.Warn("mpris server stopped", zap.Error(err))
		}
	}()

	return m, nil
}

// SetPlaybackState implements Surface.
func (m *MPRIS) SetPlaybackState(s PlaybackState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// SetMetadata implements Surface.
func (m *MPRIS) SetMetadata(meta *Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = meta
}

// SetActionHandler implements Surface.
func (m *MPRIS) SetActionHandler(a Action, h ActionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		delete(m.handlers, a)
		return
	}
	m.handlers[a] = h
}

// Close stops serving and releases D-Bus resources.
func (m *MPRIS) Close() error {
	return m.server.Stop()
}

func (m *MPRIS) dispatch(d ActionDetails) error {
	m.mu.RLock()
	h := m.handlers[d.Action]
	m.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("%s: %w", d.Action, errNotSupported)
	}
	h(d)
	return nil
}

func (m *MPRIS) has(a Action) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handlers[a] != nil
}

func (m *MPRIS) playbackState() PlaybackState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct {
	identity string
}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return r.identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav", "audio/ogg", "audio/mp4"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
type playerAdapter struct {
	m *MPRIS
}

func (p *playerAdapter) Next() error {
	return p.m.dispatch(ActionDetails{Action: ActionNextTrack})
}

func (p *playerAdapter) Previous() error {
	return p.m.dispatch(ActionDetails{Action: ActionPreviousTrack})
}

func (p *playerAdapter) Pause() error {
	return p.m.dispatch(ActionDetails{Action: ActionPause})
}

func (p *playerAdapter) PlayPause() error {
	if p.m.playbackState() == StatePlaying {
		return p.Pause()
	}
	return p.Play()
}

func (p *playerAdapter) Stop() error {
	return p.Pause()
}

func (p *playerAdapter) Play() error {
	return p.m.dispatch(ActionDetails{Action: ActionPlay})
}

// Seek is relative; it only works if a relative seek action is registered.
func (p *playerAdapter) Seek(offset types.Microseconds) error {
	a := ActionSeekForward
	if offset < 0 {
		a = ActionSeekBackward
	}
	secs := (time.Duration(offset) * time.Microsecond).Seconds()
	return p.m.dispatch(ActionDetails{Action: a, SeekTime: secs})
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	secs := (time.Duration(position) * time.Microsecond).Seconds()
	return p.m.dispatch(ActionDetails{Action: ActionSeekTo, SeekTime: secs})
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.m.playbackState() {
	case StatePlaying:
		return types.PlaybackStatusPlaying, nil
	case StatePaused:
		return types.PlaybackStatusPaused, nil
	case StateNone:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	p.m.mu.RLock()
	meta := p.m.meta
	p.m.mu.RUnlock()
	if meta == nil {
		return types.Metadata{}, nil
	}

	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(meta.TrackID)),
		Length:  types.Microseconds(meta.Length.Microseconds()),
		Title:   meta.Title,
		Artist:  meta.Artists,
		Album:   meta.Album,
		ArtUrl:  meta.ArtworkURL,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	if p.m.opts.Volume == nil {
		return 1.0, nil
	}
	return p.m.opts.Volume(), nil
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	if p.m.opts.Position == nil {
		return 0, nil
	}
	return p.m.opts.Position().Microseconds(), nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	if p.m.opts.Shuffle == nil {
		return false, nil
	}
	return p.m.opts.Shuffle(), nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	if p.m.opts.SetShuffle == nil {
		return errNotSupported
	}
	p.m.opts.SetShuffle(shuffle)
	return nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.m.has(ActionNextTrack), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.m.has(ActionPreviousTrack), nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.m.has(ActionPlay), nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return p.m.has(ActionPause), nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.m.has(ActionSeekTo), nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
