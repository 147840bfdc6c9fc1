package models

import (
	"fmt"
	"math"
	"sync"
)

// ConversionFactor holds pixels² per mm². It is written once by calibration
// and read-only afterwards.
type ConversionFactor struct {
	mu    sync.RWMutex
	value float64
	set   bool
}

// Set stores v. A second call fails with ErrFactorAlreadySet and leaves the
// first value in place.
func (f *ConversionFactor) Set(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("conversion factor must be finite, got %g", v)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.set {
		return ErrFactorAlreadySet
	}
	f.value = v
	f.set = true
	return nil
}

// Value reports the factor and whether it has been written.
func (f *ConversionFactor) Value() (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value, f.set
}

// Usable returns the factor when it is set and strictly positive, otherwise
// ErrUncalibrated.
func (f *ConversionFactor) Usable() (float64, error) {
	v, ok := f.Value()
	if !ok {
		return 0, fmt.Errorf("%w: calibration has not run", ErrUncalibrated)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: factor is %g", ErrUncalibrated, v)
	}
	return v, nil
}
