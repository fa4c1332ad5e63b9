package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/llehouerou/cadence/internal/gesture"
)

// Permission is the read permission state of a handle.
type Permission int

const (
	PermissionPrompt Permission = iota // not decided yet, a request may be made
	PermissionGranted
	PermissionDenied
)

// String returns the permission name.
func (p Permission) String() string {
	switch p {
	case PermissionPrompt:
		return "prompt"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Handle re-opens a track's file on demand.
type Handle interface {
	// Name is the file's base name.
	Name() string
	// QueryPermission reports the current permission without prompting.
	QueryPermission(ctx context.Context) (Permission, error)
	// RequestPermission asks the user for read access. It only prompts when
	// ctx carries a user gesture; otherwise it reports PermissionDenied.
	RequestPermission(ctx context.Context) (Permission, error)
	// Open materializes the file.
	Open(ctx context.Context) (io.ReadSeekCloser, error)
}

// GrantStore persists folder read grants.
type GrantStore interface {
	HasGrant(root string) (bool, error)
	AddGrant(root string) error
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, question string) (bool, error)

// Confirm calls f.
func (f PrompterFunc) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// AutoGrant is a Prompter that accepts every request.
var AutoGrant = PrompterFunc(func(context.Context, string) (bool, error) { return true, nil })

// FileHandle is a Handle to a file under a granted library root.
type FileHandle struct {
	Path string
	Root string

	grants   GrantStore
	prompter Prompter
}

var _ Handle = (*FileHandle)(nil)

// NewFileHandle creates a handle for path under root.
func NewFileHandle(path, root string, grants GrantStore, prompter Prompter) *FileHandle {
	return &FileHandle{Path: path, Root: root, grants: grants, prompter: prompter}
}

// Name returns the file's base name.
func (h *FileHandle) Name() string {
	return filepath.Base(h.Path)
}

// QueryPermission reports whether the handle's root has been granted.
func (h *FileHandle) QueryPermission(_ context.Context) (Permission, error) {
	if h.grants == nil {
		return PermissionPrompt, nil
	}
	ok, err := h.grants.HasGrant(h.Root)
	if err != nil {
		return PermissionPrompt, fmt.Errorf("query grant for %s: %w", h.Root, err)
	}
	if ok {
		return PermissionGranted, nil
	}
	return PermissionPrompt, nil
}

// RequestPermission prompts for read access to the handle's root.
func (h *FileHandle) RequestPermission(ctx context.Context) (Permission, error) {
	if !gesture.From(ctx) || h.prompter == nil || h.grants == nil {
		return PermissionDenied, nil
	}

	ok, err := h.prompter.Confirm(ctx, fmt.Sprintf("Allow read access to %s?", h.Root))
	if err != nil {
		return PermissionDenied, err
	}
	if !ok {
		return PermissionDenied, nil
	}
	if err := h.grants.AddGrant(h.Root); err != nil {
		return PermissionDenied, fmt.Errorf("save grant for %s: %w", h.Root, err)
	}
	return PermissionGranted, nil
}

// ErrFileGone is returned when the handle's file no longer exists.
var ErrFileGone = errors.New("file no longer exists")

// Open opens the file for reading.
func (h *FileHandle) Open(ctx context.Context) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(h.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", h.Path, ErrFileGone)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
