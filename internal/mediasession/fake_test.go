package mediasession

import "sync"

type fakeSurface struct {
	mu            sync.Mutex
	states        []PlaybackState
	metas         []*Metadata
	handlers      map[Action]ActionHandler
	registrations map[Action]int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		handlers:      make(map[Action]ActionHandler),
		registrations: make(map[Action]int),
	}
}

func (f *fakeSurface) SetPlaybackState(s PlaybackState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, s)
}

func (f *fakeSurface) SetMetadata(m *Metadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metas = append(f.metas, m)
}

func (f *fakeSurface) SetActionHandler(a Action, h ActionHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations[a]++
	if h == nil {
		delete(f.handlers, a)
		return
	}
	f.handlers[a] = h
}

func (f *fakeSurface) fire(a Action, d ActionDetails) bool {
	f.mu.Lock()
	h := f.handlers[a]
	f.mu.Unlock()
	if h == nil {
		return false
	}
	d.Action = a
	h(d)
	return true
}

func (f *fakeSurface) state() PlaybackState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return ""
	}
	return f.states[len(f.states)-1]
}

func (f *fakeSurface) meta() *Metadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.metas) == 0 {
		return nil
	}
	return f.metas[len(f.metas)-1]
}

func (f *fakeSurface) registered(a Action) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registrations[a]
}
