// Package analysis turns contour collections into calibrated physical areas.
// Nothing here touches pixels, so both passes can be checked on synthetic
// contours.
package analysis

import (
	"fmt"
	"math"

	"grain-analysis/internal/models"
)

// Calibrate derives pixels² per mm² from contours drawn around reference
// shapes whose cumulative physical area is knownArea.
//
// Zero contours yield a Calibration with Factor 0 together with
// models.ErrNoContours, so callers can both report the degenerate result and
// refuse to measure with it.
func Calibrate(contours []models.Contour, knownArea float64) (models.Calibration, error) {
	if knownArea <= 0 || math.IsNaN(knownArea) || math.IsInf(knownArea, 0) {
		return models.Calibration{}, fmt.Errorf("%w: %g", models.ErrInvalidKnownArea, knownArea)
	}

	pixelArea := models.TotalArea(contours)
	cal := models.Calibration{
		ContourCount: len(contours),
		PixelArea:    pixelArea,
		KnownArea:    knownArea,
		Factor:       pixelArea / knownArea,
	}

	if len(contours) == 0 {
		return cal, fmt.Errorf("calibration: %w", models.ErrNoContours)
	}

	return cal, nil
}
