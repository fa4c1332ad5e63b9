package playback

import "time"

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	StatusChanged   <-chan StatusChange
	TrackChanged    <-chan TrackChange
	PositionChanged <-chan PositionChange
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	VolumeChanged   <-chan VolumeChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	// Internal write channels
	statusCh   chan StatusChange
	trackCh    chan TrackChange
	positionCh chan PositionChange
	queueCh    chan QueueChange
	modeCh     chan ModeChange
	volumeCh   chan VolumeChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		statusCh:   make(chan StatusChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		queueCh:    make(chan QueueChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		volumeCh:   make(chan VolumeChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StatusChanged = s.statusCh
	s.TrackChanged = s.trackCh
	s.PositionChanged = s.positionCh
	s.QueueChanged = s.queueCh
	s.ModeChanged = s.modeCh
	s.VolumeChanged = s.volumeCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// sendStatus sends a status change event (non-blocking).
func (s *Subscription) sendStatus(e StatusChange) {
	select {
	case s.statusCh <- e:
	default:
		// Drop if buffer full
	}
}

// sendTrack sends a track change event (non-blocking).
func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

// sendPosition sends a position change event (non-blocking).
func (s *Subscription) sendPosition(pos time.Duration) {
	select {
	case s.positionCh <- PositionChange{Position: pos}:
	default:
	}
}

// sendQueue sends a queue change event (non-blocking).
func (s *Subscription) sendQueue(e QueueChange) {
	select {
	case s.queueCh <- e:
	default:
	}
}

// sendMode sends a mode change event (non-blocking).
func (s *Subscription) sendMode(e ModeChange) {
	select {
	case s.modeCh <- e:
	default:
	}
}

// sendVolume sends a volume change event (non-blocking).
func (s *Subscription) sendVolume(e VolumeChange) {
	select {
	case s.volumeCh <- e:
	default:
	}
}

// sendError sends an error event (non-blocking).
func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
