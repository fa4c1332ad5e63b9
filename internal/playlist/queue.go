// Package playlist holds the play queue and the shuffle history.
//
// Neither type is safe for concurrent use; the playback engine guards both
// with its own lock.
package playlist

import "github.com/llehouerou/cadence/internal/library"

// Queue is the ordered list of tracks next and previous move through.
// It is replaced wholesale whenever playback starts from a new view.
type Queue struct {
	tracks []*library.Track
}

// NewQueue creates a new empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Replace discards the queue and holds tracks instead.
// Nil entries are dropped.
func (q *Queue) Replace(tracks []*library.Track) {
	q.tracks = make([]*library.Track, 0, len(tracks))
	for _, t := range tracks {
		if t != nil {
			q.tracks = append(q.tracks, t)
		}
	}
}

// Tracks returns a copy of the queue.
func (q *Queue) Tracks() []*library.Track {
	out := make([]*library.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// At returns the track at index, or nil if out of bounds.
func (q *Queue) At(index int) *library.Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	return q.tracks[index]
}

// IndexOf returns the position of the first track with id, or -1.
func (q *Queue) IndexOf(id string) int {
	for i, t := range q.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// After returns the track following id.
// Returns nil if id is last or not in the queue.
func (q *Queue) After(id string) *library.Track {
	i := q.IndexOf(id)
	if i < 0 {
		return nil
	}
	return q.At(i + 1)
}

// Before returns the track preceding id.
// Returns nil if id is first or not in the queue.
func (q *Queue) Before(id string) *library.Track {
	i := q.IndexOf(id)
	if i <= 0 {
		return nil
	}
	return q.At(i - 1)
}

// Random returns a uniformly chosen track using intn, which must return a
// value in [0, n). The current track may be chosen again.
func (q *Queue) Random(intn func(n int) int) *library.Track {
	if q.IsEmpty() {
		return nil
	}
	return q.tracks[intn(q.Len())]
}
