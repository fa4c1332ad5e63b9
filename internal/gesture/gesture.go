// Package gesture marks a context as originating from a direct user action.
//
// Permission prompts for file handles are only allowed from a call chain that
// started with a user action (a shell command, a media key press). Work that
// the player starts on its own, such as auto-advance at end of track or
// preloading, runs without the mark and therefore can never prompt.
package gesture

import "context"

type key struct{}

// With returns a copy of ctx carrying a user-gesture mark.
func With(ctx context.Context) context.Context {
	return context.WithValue(ctx, key{}, true)
}

// From reports whether ctx carries a user-gesture mark.
func From(ctx context.Context) bool {
	v, _ := ctx.Value(key{}).(bool)
	return v
}

// Without strips the gesture mark while keeping cancellation and deadlines.
func Without(ctx context.Context) context.Context {
	return context.WithValue(ctx, key{}, false)
}
