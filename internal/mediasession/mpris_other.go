//go:build !linux

package mediasession

import (
	"time"

	"go.uber.org/zap"
)

// MPRISOptions configures the MPRIS surface.
type MPRISOptions struct {
	Name       string
	Identity   string
	Position   func() time.Duration
	Volume     func() float64
	Shuffle    func() bool
	SetShuffle func(bool)
	Logger     *zap.Logger
}

// MPRIS is a no-op surface on non-Linux platforms.
type MPRIS struct {
	Nop
}

// NewMPRIS returns a no-op surface on non-Linux platforms.
func NewMPRIS(_ MPRISOptions) (*MPRIS, error) {
	return &MPRIS{}, nil
}

// Close is a no-op on non-Linux platforms.
func (m *MPRIS) Close() error {
	return nil
}
