package models

import "math"

// Calibration is the outcome of the reference pass.
type Calibration struct {
	ContourCount int
	// PixelArea is the summed contour area in pixels².
	PixelArea float64
	// KnownArea is the physical area of the reference shapes in mm².
	KnownArea float64
	// Factor is PixelArea / KnownArea, in pixels² per mm².
	Factor float64
}

// GrainArea is one measured grain.
type GrainArea struct {
	Index     int
	Pixels    float64
	Physical  float64
	// Perimeter is in pixels.
	Perimeter float64
}

// GrainStats summarises per-grain physical areas. Every field is NaN when
// there are no grains.
type GrainStats struct {
	Min    float64
	Max    float64
	Median float64
	StdDev float64
}

type MeasurementResult struct {
	GrainCount        int
	TotalAreaPixels   float64
	TotalAreaPhysical float64
	// MeanAreaPhysical is NaN when GrainCount is zero.
	MeanAreaPhysical float64
	Grains           []GrainArea
	Stats            GrainStats
}

// HasGrains reports whether the mean area is defined.
func (m MeasurementResult) HasGrains() bool {
	return m.GrainCount > 0 && !math.IsNaN(m.MeanAreaPhysical)
}
