//go:build linux

package led

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives an LED from a GPIO output line using software PWM.
// The PWM loop runs on its own goroutine; SetIntensity only publishes the
// new duty cycle to it.
type RealWriter struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	period time.Duration

	duty  atomic.Uint64 // math.Float64bits of the duty cycle
	level int

	mu      sync.Mutex
	lineErr error

	quit chan struct{}
	done chan struct{}
}

// NewRealWriter requests pin on chip as an output (initially low) and starts
// the PWM loop with the given period.
func NewRealWriter(chip string, pin int, period time.Duration) (*RealWriter, error) {
	if period <= 0 {
		return nil, fmt.Errorf("led: invalid pwm period %v", period)
	}
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	l, err := c.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pin, err)
	}

	w := &RealWriter{
		chip:   c,
		line:   l,
		period: period,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// SetIntensity publishes a new duty cycle. It reports the last error seen by
// the PWM loop, if any.
func (w *RealWriter) SetIntensity(value float64) error {
	if !validIntensity(value) {
		return ErrInvalidIntensity
	}
	w.duty.Store(math.Float64bits(value))

	w.mu.Lock()
	err := w.lineErr
	w.lineErr = nil
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write LED pin: %w", err)
	}
	return nil
}

func (w *RealWriter) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.period)
	defer ticker.Stop()
	offTimer := time.NewTimer(w.period)
	offTimer.Stop()

	for {
		select {
		case <-w.quit:
			return
		case <-ticker.C:
		}

		on := time.Duration(math.Float64frombits(w.duty.Load()) * float64(w.period))
		switch {
		case on <= 0:
			w.set(0)
		case on >= w.period:
			w.set(1)
		default:
			w.set(1)
			offTimer.Reset(on)
			select {
			case <-w.quit:
				offTimer.Stop()
				return
			case <-offTimer.C:
			}
			w.set(0)
		}
	}
}

func (w *RealWriter) set(level int) {
	if level == w.level {
		return
	}
	if err := w.line.SetValue(level); err != nil {
		w.mu.Lock()
		w.lineErr = err
		w.mu.Unlock()
		return
	}
	w.level = level
}

// Close stops the PWM loop, drives the line low and returns it to an input
// with pull-down, matching the Pi boot default.
func (w *RealWriter) Close() error {
	close(w.quit)
	<-w.done

	var errs []error
	if w.line != nil {
		if err := w.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive LED pin low: %w", err))
		}
		if err := w.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pin: %w", err))
		}
		if err := w.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
