// Package sensor provides pressure sensor reading with hardware abstraction.
// The real implementation reads a comparator output through the Linux GPIO
// character device. The fake implementation allows testing without hardware.
package sensor

import "errors"

// ErrNoSamples is returned by FakeReader when it has nothing scripted.
var ErrNoSamples = errors.New("sensor: no samples configured")

// Reader reads the pressure under the cup.
type Reader interface {
	// Read returns the pressure normalized to [0, 1].
	// Digital comparator boards report exactly 0 or 1.
	Read() (float64, error)

	// Close releases sensor resources.
	Close() error
}

// Default wiring (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)
