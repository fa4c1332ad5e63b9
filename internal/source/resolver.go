package source

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/gesture"
	"github.com/llehouerou/cadence/internal/library"
)

// Resolver turns tracks into sources and holds the preload slot.
type Resolver struct {
	log     *zap.Logger
	tracker *Tracker

	mu           sync.Mutex
	slot         *Source
	preloadToken uint64

	resolutions atomic.Int64
}

// NewResolver creates a resolver. Sources are counted by tracker.
func NewResolver(log *zap.Logger, tracker *Tracker) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Resolver{log: log, tracker: tracker}
}

// Tracker returns the tracker counting this resolver's sources.
func (r *Resolver) Tracker() *Tracker {
	return r.tracker
}

// Resolutions returns how many sources were materialized from a blob or a
// handle. Consuming the preload slot does not count.
func (r *Resolver) Resolutions() int64 {
	return r.resolutions.Load()
}

// Resolve returns a source for t. A preloaded source for the same track is
// handed over without new work. Handle-backed tracks without permission
// trigger at most one permission request, which only succeeds when ctx
// carries a user gesture. Errors are *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, t *library.Track) (*Source, error) {
	if t == nil {
		return nil, resolutionError("", ErrNoSource)
	}

	r.mu.Lock()
	if r.slot != nil && r.slot.trackID == t.ID {
		src := r.slot
		r.slot = nil
		r.mu.Unlock()
		r.log.Debug("using preloaded source", zap.String("track", t.ID))
		return src, nil
	}
	r.mu.Unlock()

	return r.materialize(ctx, t, true)
}

// Preload fills the slot with a source for next, releasing a slot that holds
// a different track. A nil or unplayable next only empties the slot. Preload
// never prompts for permission. If another Preload or Invalidate happens
// while this one is resolving, the result is released and dropped.
func (r *Resolver) Preload(ctx context.Context, next *library.Track) {
	r.mu.Lock()
	r.preloadToken++
	token := r.preloadToken

	if next.Playable() && r.slot != nil && r.slot.trackID == next.ID {
		r.mu.Unlock()
		return
	}
	stale := r.slot
	r.slot = nil
	r.mu.Unlock()

	if stale != nil {
		r.release(stale, "stale preload")
	}
	if !next.Playable() {
		return
	}

	src, err := r.materialize(gesture.Without(ctx), next, false)
	if err != nil {
		r.log.Debug("preload skipped", zap.String("track", next.ID), zap.Error(err))
		return
	}

	r.mu.Lock()
	if token != r.preloadToken {
		r.mu.Unlock()
		r.release(src, "superseded preload")
		return
	}
	r.slot = src
	r.mu.Unlock()
	r.log.Debug("preloaded", zap.String("track", next.ID))
}

// Invalidate releases the preload slot and cancels any in-flight preload.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.preloadToken++
	stale := r.slot
	r.slot = nil
	r.mu.Unlock()

	if stale != nil {
		r.release(stale, "invalidated preload")
	}
}

// Preloaded returns the track id held in the slot, or "".
func (r *Resolver) Preloaded() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot == nil {
		return ""
	}
	return r.slot.trackID
}

// Close releases the slot.
func (r *Resolver) Close() {
	r.Invalidate()
}

func (r *Resolver) release(src *Source, reason string) {
	if err := src.Release(); err != nil {
		r.log.Warn("release source", zap.String("reason", reason), zap.String("track", src.trackID), zap.Error(err))
	}
}

func (r *Resolver) materialize(ctx context.Context, t *library.Track, allowPrompt bool) (*Source, error) {
	ext := t.Ext()

	if t.Blob != nil {
		r.resolutions.Add(1)
		return r.tracker.acquire(t.ID, ext, bytes.NewReader(t.Blob), nil), nil
	}

	h := t.Handle
	if h == nil {
		return nil, resolutionError(t.ID, ErrNoSource)
	}
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(h.Name()))
	}

	perm, err := h.QueryPermission(ctx)
	if err != nil {
		return nil, resolutionError(t.ID, err)
	}
	if perm != library.PermissionGranted {
		if !allowPrompt {
			return nil, resolutionError(t.ID, ErrPermissionDenied)
		}
		perm, err = h.RequestPermission(ctx)
		if err != nil {
			return nil, resolutionError(t.ID, err)
		}
		if perm != library.PermissionGranted {
			if !gesture.From(ctx) {
				r.log.Warn("permission request outside a user action", zap.String("track", t.ID))
			}
			return nil, resolutionError(t.ID, ErrPermissionDenied)
		}
	}

	f, err := h.Open(ctx)
	if err != nil {
		return nil, resolutionError(t.ID, err)
	}

	r.resolutions.Add(1)
	return r.tracker.acquire(t.ID, ext, f, f), nil
}
