package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/cadence/internal/gesture"
	"github.com/llehouerou/cadence/internal/library"
)

type fakeHandle struct {
	name string
	data []byte

	mu        sync.Mutex
	perm      library.Permission
	grantOn   bool // grant when requested with a gesture
	requests  int
	opens     int
	openErr   error
	readers   []*trackedReader
	blockOpen chan struct{}
}

type trackedReader struct {
	*bytes.Reader
	closed bool
}

func (r *trackedReader) Close() error {
	r.closed = true
	return nil
}

func (h *fakeHandle) Name() string { return h.name }

func (h *fakeHandle) QueryPermission(context.Context) (library.Permission, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.perm, nil
}

func (h *fakeHandle) RequestPermission(ctx context.Context) (library.Permission, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests++
	if h.grantOn && gesture.From(ctx) {
		h.perm = library.PermissionGranted
		return h.perm, nil
	}
	return library.PermissionDenied, nil
}

func (h *fakeHandle) Open(context.Context) (io.ReadSeekCloser, error) {
	if h.blockOpen != nil {
		<-h.blockOpen
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opens++
	if h.openErr != nil {
		return nil, h.openErr
	}
	r := &trackedReader{Reader: bytes.NewReader(h.data)}
	h.readers = append(h.readers, r)
	return r, nil
}

func handleTrack(id string, h *fakeHandle) *library.Track {
	return &library.Track{ID: id, FileName: h.name, Handle: h}
}

func TestResolve_Blob(t *testing.T) {
	r := NewResolver(nil, nil)
	tr := &library.Track{ID: "a", FileName: "a.MP3", Blob: []byte("abc")}

	src, err := r.Resolve(context.Background(), tr)
	require.NoError(t, err)
	defer src.Release()

	assert.Equal(t, "a", src.TrackID())
	assert.Equal(t, ".mp3", src.Ext())
	data, _ := io.ReadAll(src.Reader())
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, int64(1), r.Resolutions())
	assert.Equal(t, 1, r.Tracker().Live())
}

func TestResolve_Zombie(t *testing.T) {
	r := NewResolver(nil, nil)

	_, err := r.Resolve(context.Background(), &library.Track{ID: "z"})

	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "z", rerr.TrackID)
	assert.ErrorIs(t, err, ErrNoSource)
	assert.Equal(t, int64(0), r.Resolutions())
}

func TestResolve_HandleGranted(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "b.flac", data: []byte("flac"), perm: library.PermissionGranted}

	src, err := r.Resolve(context.Background(), handleTrack("b", h))
	require.NoError(t, err)

	assert.Equal(t, 0, h.requests)
	assert.Equal(t, ".flac", src.Ext())
	require.NoError(t, src.Release())
	assert.True(t, h.readers[0].closed)
	assert.Equal(t, 0, r.Tracker().Live())
}

func TestResolve_ExtFromHandleName(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "c.Ogg", perm: library.PermissionGranted}

	src, err := r.Resolve(context.Background(), &library.Track{ID: "c", Handle: h})
	require.NoError(t, err)
	defer src.Release()

	assert.Equal(t, ".ogg", src.Ext())
}

func TestResolve_RequestsPermissionOnceWithGesture(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "b.mp3", perm: library.PermissionPrompt, grantOn: true}

	src, err := r.Resolve(gesture.With(context.Background()), handleTrack("b", h))
	require.NoError(t, err)
	defer src.Release()

	assert.Equal(t, 1, h.requests)
	assert.Equal(t, 1, h.opens)
}

func TestResolve_PermissionDeniedFailsClosed(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "b.mp3", perm: library.PermissionPrompt}

	src, err := r.Resolve(gesture.With(context.Background()), handleTrack("b", h))

	assert.Nil(t, src)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 1, h.requests)
	assert.Equal(t, 0, h.opens)
	assert.Equal(t, 0, r.Tracker().Live())
}

func TestResolve_NoGestureCannotGrant(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "b.mp3", perm: library.PermissionPrompt, grantOn: true}

	_, err := r.Resolve(context.Background(), handleTrack("b", h))

	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 1, h.requests)
}

func TestResolve_OpenError(t *testing.T) {
	r := NewResolver(nil, nil)
	boom := errors.New("boom")
	h := &fakeHandle{name: "b.mp3", perm: library.PermissionGranted, openErr: boom}

	_, err := r.Resolve(context.Background(), handleTrack("b", h))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), r.Resolutions())
}

func TestPreload_ConsumedWithoutFreshResolution(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "b.mp3", perm: library.PermissionGranted}
	b := handleTrack("b", h)

	r.Preload(context.Background(), b)
	require.Equal(t, "b", r.Preloaded())
	before := r.Resolutions()

	src, err := r.Resolve(context.Background(), b)
	require.NoError(t, err)
	defer src.Release()

	assert.Equal(t, before, r.Resolutions())
	assert.Equal(t, "", r.Preloaded())
	assert.Equal(t, 1, h.opens)
}

func TestPreload_NeverPrompts(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "b.mp3", perm: library.PermissionPrompt, grantOn: true}

	r.Preload(gesture.With(context.Background()), handleTrack("b", h))

	assert.Equal(t, 0, h.requests)
	assert.Equal(t, "", r.Preloaded())
}

func TestPreload_ReplacesStaleSlot(t *testing.T) {
	r := NewResolver(nil, nil)
	hb := &fakeHandle{name: "b.mp3", perm: library.PermissionGranted}
	hc := &fakeHandle{name: "c.mp3", perm: library.PermissionGranted}

	r.Preload(context.Background(), handleTrack("b", hb))
	r.Preload(context.Background(), handleTrack("c", hc))

	assert.Equal(t, "c", r.Preloaded())
	assert.True(t, hb.readers[0].closed)
	assert.Equal(t, 1, r.Tracker().Live())
}

func TestPreload_SameTrackKeepsSlot(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "b.mp3", perm: library.PermissionGranted}
	b := handleTrack("b", h)

	r.Preload(context.Background(), b)
	r.Preload(context.Background(), b)

	assert.Equal(t, 1, h.opens)
	assert.Equal(t, "b", r.Preloaded())
}

func TestPreload_NilEmptiesSlot(t *testing.T) {
	r := NewResolver(nil, nil)
	r.Preload(context.Background(), &library.Track{ID: "b", Blob: []byte("x")})

	r.Preload(context.Background(), nil)

	assert.Equal(t, "", r.Preloaded())
	assert.Equal(t, 0, r.Tracker().Live())
}

func TestPreload_SupersededResultDiscarded(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := NewResolver(nil, nil)
		h := &fakeHandle{name: "b.mp3", perm: library.PermissionGranted, blockOpen: make(chan struct{})}

		done := make(chan struct{})
		go func() {
			r.Preload(context.Background(), handleTrack("b", h))
			close(done)
		}()

		synctest.Wait() // preload is parked in Open
		r.Invalidate()
		close(h.blockOpen)
		<-done

		assert.Equal(t, "", r.Preloaded())
		assert.Equal(t, 1, h.opens)
		assert.True(t, h.readers[0].closed)
		assert.Equal(t, 0, r.Tracker().Live())
	})
}

func TestInvalidate_ReleasesSlot(t *testing.T) {
	r := NewResolver(nil, nil)
	h := &fakeHandle{name: "b.mp3", perm: library.PermissionGranted}
	r.Preload(context.Background(), handleTrack("b", h))

	r.Invalidate()

	assert.Equal(t, "", r.Preloaded())
	assert.True(t, h.readers[0].closed)
	assert.Equal(t, 0, r.Tracker().Live())
}

func TestSource_ReleaseIdempotent(t *testing.T) {
	tr := NewTracker()
	rc := &trackedReader{Reader: bytes.NewReader(nil)}
	src := tr.acquire("a", ".mp3", rc, rc)

	require.NoError(t, src.Release())
	require.NoError(t, src.Release())

	assert.True(t, src.Released())
	assert.Equal(t, 0, tr.Live())
	assert.Equal(t, 1, tr.Acquired())

	var nilSrc *Source
	assert.NoError(t, nilSrc.Release())
}

func TestTracker_SourceIDsAreUnique(t *testing.T) {
	tr := NewTracker()
	a := tr.acquire("a", ".mp3", bytes.NewReader(nil), nil)
	b := tr.acquire("a", ".mp3", bytes.NewReader(nil), nil)

	assert.NotZero(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
