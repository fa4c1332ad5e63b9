// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"errors"
	"fmt"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/source"
)

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryLoad   Op = "load library"
	OpLibraryScan   Op = "scan library"
	OpLibraryReset  Op = "reset library"
	OpLibraryWatch  Op = "watch library folders"
	OpFolderAdd     Op = "add folder"
	OpFilesAdd      Op = "add files"
	OpPlayCountSave Op = "save play count"

	// User data
	OpUserDataExport Op = "export user data"
	OpUserDataImport Op = "import user data"

	// Playback operations
	OpPlaybackStart    Op = "start playback"
	OpPlaybackNext     Op = "play next track"
	OpPlaybackPrevious Op = "play previous track"
	OpPlaybackToggle   Op = "toggle playback"

	// Media session
	OpMediaSession Op = "start media session"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %s", op, reason(err))
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %s", op, context, reason(err))
}

// reason replaces well-known causes with a hint the user can act on.
func reason(err error) string {
	switch {
	case errors.Is(err, source.ErrPermissionDenied):
		return "read access was not granted"
	case errors.Is(err, source.ErrNoSource):
		return "the file is not available in this session, add it again"
	case errors.Is(err, library.ErrFileGone):
		return "the file was moved or deleted, rescan the library"
	case errors.Is(err, player.ErrUnsupportedFormat):
		return "this format cannot be played"
	default:
		return err.Error()
	}
}
