package analysis

import (
	"fmt"
	"math"
	"sort"

	"grain-analysis/internal/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Measure converts grain contours to physical areas using factor (pixels² per
// mm²). A factor that is not strictly positive and finite fails with
// models.ErrUncalibrated. No grains is a valid result whose mean is NaN.
func Measure(contours []models.Contour, factor float64) (models.MeasurementResult, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return models.MeasurementResult{}, fmt.Errorf("%w: factor is %g", models.ErrUncalibrated, factor)
	}

	pixels := models.Areas(contours)
	grains := make([]models.GrainArea, len(contours))
	physical := make([]float64, len(contours))
	for i, c := range contours {
		physical[i] = pixels[i] / factor
		grains[i] = models.GrainArea{
			Index:     i,
			Pixels:    pixels[i],
			Physical:  physical[i],
			Perimeter: c.Perimeter,
		}
	}

	totalPixels := models.TotalArea(contours)
	totalPhysical := totalPixels / factor

	result := models.MeasurementResult{
		GrainCount:        len(contours),
		TotalAreaPixels:   totalPixels,
		TotalAreaPhysical: totalPhysical,
		MeanAreaPhysical:  math.NaN(),
		Grains:            grains,
		Stats:             Summarise(physical),
	}
	if result.GrainCount > 0 {
		result.MeanAreaPhysical = totalPhysical / float64(result.GrainCount)
	}

	return result, nil
}

// Summarise computes min, max, lower median and sample standard deviation.
func Summarise(areas []float64) models.GrainStats {
	nan := math.NaN()
	if len(areas) == 0 {
		return models.GrainStats{Min: nan, Max: nan, Median: nan, StdDev: nan}
	}

	sorted := make([]float64, len(areas))
	copy(sorted, areas)
	sort.Float64s(sorted)

	stats := models.GrainStats{
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		StdDev: 0,
	}
	if len(sorted) > 1 {
		stats.StdDev = stat.StdDev(sorted, nil)
	}
	return stats
}
