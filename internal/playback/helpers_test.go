package playback

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/llehouerou/cadence/internal/gesture"
	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/source"
)

// permHandle is a library.Handle whose permission and open behavior is
// scripted by the test.
type permHandle struct {
	name string

	mu        sync.Mutex
	perm      library.Permission
	grant     bool // grant requests that carry a gesture
	requests  int
	opens     int
	blockOpen chan struct{}
}

func (h *permHandle) Name() string { return h.name }

func (h *permHandle) QueryPermission(context.Context) (library.Permission, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.perm, nil
}

func (h *permHandle) RequestPermission(ctx context.Context) (library.Permission, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests++
	if h.grant && gesture.From(ctx) {
		h.perm = library.PermissionGranted
		return h.perm, nil
	}
	return library.PermissionDenied, nil
}

func (h *permHandle) Open(context.Context) (io.ReadSeekCloser, error) {
	if h.blockOpen != nil {
		<-h.blockOpen
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opens++
	return nopCloser{bytes.NewReader([]byte("audio"))}, nil
}

func (h *permHandle) Requests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

type nopCloser struct{ io.ReadSeeker }

func (nopCloser) Close() error { return nil }

func blobTrack(id string) *library.Track {
	return &library.Track{
		ID:       id,
		FileName: id + ".mp3",
		Title:    "Title " + id,
		Duration: 3 * time.Minute,
		Blob:     []byte("audio " + id),
	}
}

func blobTracks(ids ...string) []*library.Track {
	out := make([]*library.Track, len(ids))
	for i, id := range ids {
		out[i] = blobTrack(id)
	}
	return out
}

type fakeSettings struct {
	mu      sync.Mutex
	volumes []float64
	shuffle []bool
}

func (s *fakeSettings) SaveVolume(level float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumes = append(s.volumes, level)
	return nil
}

func (s *fakeSettings) SaveShuffle(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = append(s.shuffle, on)
	return nil
}

type finishedRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *finishedRecorder) record(t *library.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, t.ID)
}

func (r *finishedRecorder) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type testEngine struct {
	*Engine
	out      *player.Mock
	tracker  *source.Tracker
	finished *finishedRecorder
	settings *fakeSettings
}

// newTestEngine builds an engine over a mock output. Preload is off unless
// the test opts in, so source counts stay deterministic.
func newTestEngine(opts Options) *testEngine {
	out := player.NewMock()
	out.SetDuration(3 * time.Minute)
	tracker := source.NewTracker()
	rec := &finishedRecorder{}
	settings := &fakeSettings{}
	if opts.OnTrackFinished == nil {
		opts.OnTrackFinished = rec.record
	}
	if opts.Settings == nil {
		opts.Settings = settings
	}
	e := New(out, source.NewResolver(nil, tracker), opts)
	return &testEngine{Engine: e, out: out, tracker: tracker, finished: rec, settings: settings}
}

func noPreload() Options {
	return Options{DisablePreload: true}
}

// scripted returns an Intn that yields picks in order.
func scripted(picks ...int) func(int) int {
	var mu sync.Mutex
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		if len(picks) == 0 {
			return 0
		}
		p := picks[0]
		picks = picks[1:]
		return p % n
	}
}

func userCtx() context.Context {
	return gesture.With(context.Background())
}
