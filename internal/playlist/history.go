package playlist

import "github.com/llehouerou/cadence/internal/library"

// DefaultHistorySize bounds the history when no size is configured.
const DefaultHistorySize = 100

// History is a bounded stack of previously played tracks.
// When full, the oldest entry is dropped.
type History struct {
	tracks  []*library.Track
	maxSize int
}

// NewHistory creates a new history with the given maximum size.
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		tracks:  make([]*library.Track, 0, min(maxSize, DefaultHistorySize)),
		maxSize: maxSize,
	}
}

// Push records t as the most recent entry.
func (h *History) Push(t *library.Track) {
	if t == nil {
		return
	}
	h.tracks = append(h.tracks, t)

	// Trim if over limit
	if len(h.tracks) > h.maxSize {
		excess := len(h.tracks) - h.maxSize
		h.tracks = h.tracks[excess:]
	}
}

// Peek returns the most recent entry without removing it.
func (h *History) Peek() (*library.Track, bool) {
	if h.Len() == 0 {
		return nil, false
	}
	return h.tracks[h.Len()-1], true
}

// Pop removes and returns the most recent entry.
func (h *History) Pop() (*library.Track, bool) {
	t, ok := h.Peek()
	if !ok {
		return nil, false
	}
	h.tracks[len(h.tracks)-1] = nil
	h.tracks = h.tracks[:len(h.tracks)-1]
	return t, true
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.tracks)
}

// Tracks returns the entries, oldest first.
func (h *History) Tracks() []*library.Track {
	out := make([]*library.Track, len(h.tracks))
	copy(out, h.tracks)
	return out
}
