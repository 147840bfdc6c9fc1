package render

import (
	"image"
	"math"
	"testing"

	"grain-analysis/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestPaletteIsSeeded(t *testing.T) {
	a, b := NewPalette(12345), NewPalette(12345)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
	assert.NotEqual(t, NewPalette(1).Next(), NewPalette(2).Next())
}

func TestContoursDrawsOnBlackCanvas(t *testing.T) {
	contours := []models.Contour{{
		Points: []image.Point{{10, 10}, {40, 10}, {40, 40}, {10, 40}},
		Area:   900,
	}}

	canvas, err := Contours(60, 80, contours, 3, NewPalette(12345), nil, "output")
	require.NoError(t, err)
	defer canvas.Close()

	assert.Equal(t, 60, canvas.Rows())
	assert.Equal(t, 80, canvas.Cols())
	assert.Equal(t, 3, canvas.Channels())

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(canvas.GetMat(), &gray, gocv.ColorBGRToGray)
	assert.Positive(t, gocv.CountNonZero(gray))
	assert.Zero(t, gray.GetUCharAt(25, 25))
	assert.Zero(t, gray.GetUCharAt(55, 75))
}

func TestContoursEmpty(t *testing.T) {
	canvas, err := Contours(10, 10, nil, 1, NewPalette(1), nil, "empty")
	require.NoError(t, err)
	defer canvas.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(canvas.GetMat(), &gray, gocv.ColorBGRToGray)
	assert.Zero(t, gocv.CountNonZero(gray))
}

func TestContoursRejectsThickness(t *testing.T) {
	_, err := Contours(10, 10, nil, 0, NewPalette(1), nil, "bad")
	assert.Error(t, err)
}

func TestAnnotateWritesText(t *testing.T) {
	canvas, err := Contours(120, 400, nil, 1, NewPalette(1), nil, "text")
	require.NoError(t, err)
	defer canvas.Close()

	require.NoError(t, Annotate(canvas, "Number = 1", "Area = 2500.000000"))

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(canvas.GetMat(), &gray, gocv.ColorBGRToGray)
	assert.Positive(t, gocv.CountNonZero(gray))
}

func TestLines(t *testing.T) {
	cal := models.Calibration{ContourCount: 1, PixelArea: 2500}
	assert.Equal(t, []string{"Number = 1", "Area = 2500.000000"}, CalibrationLines(cal))

	res := models.MeasurementResult{GrainCount: 3, TotalAreaPhysical: 90, MeanAreaPhysical: 30}
	assert.Equal(t, []string{
		"Number of grain = 3",
		"Total area of grain = 90.000000mm2",
		"Mean area of grain = 30.000000mm2",
	}, MeasurementLines(res))

	empty := models.MeasurementResult{MeanAreaPhysical: math.NaN()}
	assert.Equal(t, "Mean area of grain = n/a", MeasurementLines(empty)[2])
}
