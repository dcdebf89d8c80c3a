package led

// FakeWriter is a test double that records every intensity written.
type FakeWriter struct {
	// Writes contains every accepted intensity, in order.
	Writes []float64

	// WriteError, if set, is returned by SetIntensity and nothing is recorded.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeWriter creates a FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// SetIntensity records value.
func (f *FakeWriter) SetIntensity(value float64) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if !validIntensity(value) {
		return ErrInvalidIntensity
	}
	f.Writes = append(f.Writes, value)
	return nil
}

// Last returns the most recent intensity, or 0 if nothing was written.
func (f *FakeWriter) Last() float64 {
	if len(f.Writes) == 0 {
		return 0
	}
	return f.Writes[len(f.Writes)-1]
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes and errors.
func (f *FakeWriter) Reset() {
	f.Writes = nil
	f.WriteError = nil
	f.Closed = false
}
