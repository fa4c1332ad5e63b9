package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSource means the track has neither a blob nor a handle.
	ErrNoSource = errors.New("track has no file or handle")
	// ErrPermissionDenied means read permission was not granted.
	ErrPermissionDenied = errors.New("permission denied")
)

// ResolutionError reports that a track's file could not be materialized.
// It is terminal for the playback attempt that triggered it.
type ResolutionError struct {
	TrackID string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve track %s: %v", e.TrackID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func resolutionError(trackID string, err error) error {
	return &ResolutionError{TrackID: trackID, Err: err}
}
