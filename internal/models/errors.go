package models

import "errors"

var (
	// ErrNoContours reports a segmentation pass that found nothing to measure.
	ErrNoContours = errors.New("no contours detected")
	// ErrUncalibrated reports a measurement attempted without a usable
	// conversion factor.
	ErrUncalibrated = errors.New("conversion factor not calibrated")
	// ErrFactorAlreadySet reports a second write to a ConversionFactor.
	ErrFactorAlreadySet = errors.New("conversion factor already set")
	// ErrInvalidKnownArea reports a non-positive reference area.
	ErrInvalidKnownArea = errors.New("known physical area must be positive")
)
