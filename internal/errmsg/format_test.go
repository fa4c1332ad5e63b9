//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/source"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpLibraryScan,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpLibraryScan,
			err:      errors.New("disk full"),
			expected: "Failed to scan library: disk full",
		},
		{
			name:     "permission denied gets a hint",
			op:       OpPlaybackStart,
			err:      &source.ResolutionError{TrackID: "a", Err: source.ErrPermissionDenied},
			expected: "Failed to start playback: read access was not granted",
		},
		{
			name:     "zombie track gets a hint",
			op:       OpPlaybackNext,
			err:      fmt.Errorf("resolve: %w", source.ErrNoSource),
			expected: "Failed to play next track: the file is not available in this session, add it again",
		},
		{
			name:     "vanished file gets a hint",
			op:       OpPlaybackToggle,
			err:      fmt.Errorf("open: %w", library.ErrFileGone),
			expected: "Failed to toggle playback: the file was moved or deleted, rescan the library",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpFolderAdd,
			context:  "/music",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with context",
			op:       OpFolderAdd,
			context:  "/music",
			err:      errors.New("not a directory"),
			expected: "Failed to add folder '/music': not a directory",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpUserDataImport,
			context:  "",
			err:      errors.New("missing playCounts"),
			expected: "Failed to import user data: missing playCounts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}
