// Package render draws the diagnostic overlays: contours in random colours on
// a black canvas with a few lines of text.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"

	"grain-analysis/internal/models"
	"grain-analysis/internal/opencv/safe"

	"gocv.io/x/gocv"
)

var textColor = color.RGBA{R: 200, G: 200, B: 200}

const (
	textX      = 30
	textY      = 30
	lineHeight = 40
)

// Palette hands out contour colours from a seeded generator so the same
// seed always colours the same contours the same way.
type Palette struct {
	rng *rand.Rand
}

func NewPalette(seed int64) *Palette {
	return &Palette{rng: rand.New(rand.NewSource(seed))}
}

// Next returns a colour with each channel uniform in [0, 255).
func (p *Palette) Next() color.RGBA {
	return color.RGBA{
		B: uint8(p.rng.Intn(255)),
		G: uint8(p.rng.Intn(255)),
		R: uint8(p.rng.Intn(255)),
		A: 255,
	}
}

// Contours draws every contour with the given thickness on a new zeroed
// 3-channel canvas of size rows x cols.
func Contours(rows, cols int, contours []models.Contour, thickness int, palette *Palette, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	if thickness < 1 {
		return nil, fmt.Errorf("contour thickness must be >= 1, got %d", thickness)
	}

	canvas, err := safe.NewZeros(rows, cols, gocv.MatTypeCV8UC3, tracker, tag)
	if err != nil {
		return nil, fmt.Errorf("canvas creation failed: %w", err)
	}

	if len(contours) == 0 {
		return canvas, nil
	}

	pts := make([][]image.Point, len(contours))
	for i, c := range contours {
		pts[i] = c.Points
	}
	pv := gocv.NewPointsVectorFromPoints(pts)
	defer pv.Close()

	canvasMat := canvas.GetMat()
	for i := range contours {
		gocv.DrawContours(&canvasMat, pv, i, palette.Next(), thickness)
	}

	return canvas, nil
}

// Annotate writes lines top-down starting at (30, 30), 40 pixels apart.
func Annotate(canvas *safe.Mat, lines ...string) error {
	if err := safe.ValidateMatForOperation(canvas, "annotate"); err != nil {
		return err
	}

	canvasMat := canvas.GetMat()
	for i, line := range lines {
		origin := image.Point{X: textX, Y: textY + i*lineHeight}
		gocv.PutTextWithParams(&canvasMat, line, origin, gocv.FontHersheyComplexSmall, 1, textColor, 1, gocv.LineAA, false)
	}
	return nil
}

// CalibrationLines is the text of the calibration view.
func CalibrationLines(cal models.Calibration) []string {
	return []string{
		fmt.Sprintf("Number = %d", cal.ContourCount),
		fmt.Sprintf("Area = %f", cal.PixelArea),
	}
}

// MeasurementLines is the text of the grain view. An undefined mean prints
// as "n/a".
func MeasurementLines(res models.MeasurementResult) []string {
	mean := "n/a"
	if res.HasGrains() {
		mean = fmt.Sprintf("%fmm2", res.MeanAreaPhysical)
	}
	return []string{
		fmt.Sprintf("Number of grain = %d", res.GrainCount),
		fmt.Sprintf("Total area of grain = %fmm2", res.TotalAreaPhysical),
		fmt.Sprintf("Mean area of grain = %s", mean),
	}
}
