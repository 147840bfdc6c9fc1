package models

import "image"

// Contour is the closed outer boundary of one foreground region.
type Contour struct {
	Points []image.Point
	// Area is the enclosed pixel area, never negative.
	Area float64
	// Perimeter is the closed arc length in pixels.
	Perimeter float64
}

// TotalArea sums the pixel area of every contour.
func TotalArea(contours []Contour) float64 {
	total := 0.0
	for _, c := range contours {
		total += c.Area
	}
	return total
}

// Areas returns the pixel area of each contour in detection order.
func Areas(contours []Contour) []float64 {
	areas := make([]float64, len(contours))
	for i, c := range contours {
		areas[i] = c.Area
	}
	return areas
}
