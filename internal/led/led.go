// Package led drives the indicator LED with hardware abstraction.
// The real implementation runs software PWM on a Linux GPIO character device
// line. The fake implementation records writes for tests.
package led

import "errors"

// ErrInvalidIntensity is returned for intensities outside [0, 1].
var ErrInvalidIntensity = errors.New("led: intensity must be within [0, 1]")

// Writer sets the LED output level.
type Writer interface {
	// SetIntensity sets the duty cycle, 0 is dark and 1 is fully lit.
	SetIntensity(value float64) error

	// Close turns the LED off and releases resources.
	Close() error
}

// Default wiring (BCM numbering).
const (
	DefaultPin   = 13
	DefaultPWMHz = 500
)

func validIntensity(v float64) bool {
	return v >= 0 && v <= 1
}
