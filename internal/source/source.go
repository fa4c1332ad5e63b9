// Package source turns tracks into decodable byte sources.
//
// A Source is an exclusively owned resource: whoever holds it must Release it
// on every exit path. The Resolver keeps at most one preloaded Source for the
// track expected to play next.
package source

import (
	"io"
	"sync"
	"sync/atomic"
)

// Source is a byte source bound, or about to be bound, to the output.
type Source struct {
	id      uint64
	trackID string
	ext     string
	reader  io.ReadSeeker
	closer  io.Closer
	tracker *Tracker

	once     sync.Once
	released atomic.Bool
	err      error
}

// ID is unique per acquisition.
func (s *Source) ID() uint64 { return s.id }

// TrackID is the id of the track the source was resolved for.
func (s *Source) TrackID() string { return s.trackID }

// Ext is the container extension used to pick a decoder.
func (s *Source) Ext() string { return s.ext }

// Reader returns the byte stream. It must not be used after Release.
func (s *Source) Reader() io.ReadSeeker { return s.reader }

// Released reports whether Release has been called.
func (s *Source) Released() bool { return s.released.Load() }

// Release closes the underlying file, if any. It is safe to call more than
// once and on a nil Source; only the first call has an effect.
func (s *Source) Release() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.released.Store(true)
		if s.closer != nil {
			s.err = s.closer.Close()
		}
		if s.tracker != nil {
			s.tracker.released()
		}
	})
	return s.err
}

// Tracker counts live sources.
type Tracker struct {
	nextID   atomic.Uint64
	live     atomic.Int64
	acquired atomic.Int64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) acquire(trackID, ext string, r io.ReadSeeker, c io.Closer) *Source {
	t.live.Add(1)
	t.acquired.Add(1)
	return &Source{
		id:      t.nextID.Add(1),
		trackID: trackID,
		ext:     ext,
		reader:  r,
		closer:  c,
		tracker: t,
	}
}

func (t *Tracker) released() {
	t.live.Add(-1)
}

// Live returns the number of acquired, not yet released sources.
func (t *Tracker) Live() int {
	return int(t.live.Load())
}

// Acquired returns the total number of sources ever acquired.
func (t *Tracker) Acquired() int {
	return int(t.acquired.Load())
}
