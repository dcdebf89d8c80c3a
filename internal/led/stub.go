//go:build !linux

package led

import (
	"errors"
	"time"
)

// RealWriter is not available on non-Linux platforms.
type RealWriter struct{}

// NewRealWriter returns an error on non-Linux platforms.
func NewRealWriter(chip string, pin int, period time.Duration) (*RealWriter, error) {
	return nil, errors.New("led: not supported on this platform (requires Linux)")
}

// SetIntensity is not implemented on non-Linux platforms.
func (w *RealWriter) SetIntensity(value float64) error {
	return errors.New("led: not supported")
}

// Close is not implemented on non-Linux platforms.
func (w *RealWriter) Close() error {
	return nil
}
