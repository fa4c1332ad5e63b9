package playback

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("playback engine closed")

// StartError reports that the output rejected a resolved source, for
// example because the codec is not supported.
type StartError struct {
	TrackID string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start track %s: %v", e.TrackID, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
