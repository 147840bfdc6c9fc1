package segmentation

import (
	"context"
	"image"
	"image/color"
	"testing"

	"grain-analysis/internal/config"
	"grain-analysis/internal/logger"
	"grain-analysis/internal/opencv/memory"
	"grain-analysis/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func newSegmenter() *Segmenter {
	return New(config.Default().Segmentation, logger.Nop())
}

func fixture(t *testing.T, tracker safe.MemoryTracker, rects ...image.Rectangle) *safe.Mat {
	t.Helper()
	m, err := safe.NewZeros(200, 300, gocv.MatTypeCV8UC1, tracker, "fixture")
	require.NoError(t, err)
	mat := m.GetMat()
	for _, r := range rects {
		gocv.Rectangle(&mat, r, color.RGBA{R: 255, G: 255, B: 255}, -1)
	}
	return m
}

func TestStepsRunInFixedOrder(t *testing.T) {
	assert.Equal(t, []string{"box_blur", "otsu_threshold", "morphology", "canny_edges"}, newSegmenter().Steps())
}

func TestSegmentBlankImage(t *testing.T) {
	img := fixture(t, nil)
	defer img.Close()

	res, err := newSegmenter().Segment(context.Background(), img)
	require.NoError(t, err)
	defer res.Close()

	assert.Empty(t, res.Contours)
	assert.Zero(t, res.PixelArea())
	assert.Zero(t, res.Level)
}

func TestSegmentSingleSquare(t *testing.T) {
	img := fixture(t, nil, image.Rect(100, 60, 150, 110))
	defer img.Close()

	res, err := newSegmenter().Segment(context.Background(), img)
	require.NoError(t, err)
	defer res.Close()

	require.Len(t, res.Contours, 1)
	assert.GreaterOrEqual(t, res.Level, 0.0)
	assert.Less(t, res.Level, 255.0)
	assert.InEpsilon(t, 2500.0, res.Contours[0].Area, 0.15)
	assert.InEpsilon(t, 200.0, res.Contours[0].Perimeter, 0.15)
	assert.GreaterOrEqual(t, len(res.Contours[0].Points), 4)

	require.NotNil(t, res.Blurred())
	require.NotNil(t, res.Binary())
	assert.Equal(t, img.Rows(), res.Binary().Rows())
}

func TestSegmentSeparatedSquares(t *testing.T) {
	img := fixture(t, nil,
		image.Rect(20, 20, 50, 50),
		image.Rect(120, 30, 160, 70),
		image.Rect(200, 120, 260, 180),
	)
	defer img.Close()

	res, err := newSegmenter().Segment(context.Background(), img)
	require.NoError(t, err)
	defer res.Close()

	require.Len(t, res.Contours, 3)
	for _, c := range res.Contours {
		assert.GreaterOrEqual(t, c.Area, 0.0)
	}
}

func TestSegmentDropsNestedBoundaries(t *testing.T) {
	img := fixture(t, nil, image.Rect(50, 50, 150, 150))
	defer img.Close()

	mat := img.GetMat()
	gocv.Rectangle(&mat, image.Rect(80, 80, 120, 120), color.RGBA{}, -1)

	res, err := newSegmenter().Segment(context.Background(), img)
	require.NoError(t, err)
	defer res.Close()

	require.Len(t, res.Contours, 1)
	assert.InEpsilon(t, 10000.0, res.Contours[0].Area, 0.15)
}

func TestSegmentIsDeterministic(t *testing.T) {
	img := fixture(t, nil, image.Rect(30, 30, 80, 90), image.Rect(150, 40, 200, 70))
	defer img.Close()

	s := newSegmenter()
	first, err := s.Segment(context.Background(), img)
	require.NoError(t, err)
	defer first.Close()
	second, err := s.Segment(context.Background(), img)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, len(first.Contours), len(second.Contours))
	assert.Equal(t, first.PixelArea(), second.PixelArea())
	assert.Equal(t, first.Contours, second.Contours)
}

func TestSegmentReleasesIntermediates(t *testing.T) {
	tracker := memory.NewTracker(logger.Nop())
	img := fixture(t, tracker, image.Rect(30, 30, 80, 90))

	res, err := newSegmenter().Segment(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, int64(5), tracker.GetStats().ActiveMats)

	res.Close()
	img.Close()
	assert.Zero(t, tracker.GetStats().ActiveMats)
}

func TestSegmentRejectsColor(t *testing.T) {
	img, err := safe.NewZeros(10, 10, gocv.MatTypeCV8UC3, nil, "bgr")
	require.NoError(t, err)
	defer img.Close()

	_, err = newSegmenter().Segment(context.Background(), img)
	assert.Error(t, err)
}

func TestSegmentCancelled(t *testing.T) {
	img := fixture(t, nil)
	defer img.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSegmenter().Segment(ctx, img)
	assert.ErrorIs(t, err, context.Canceled)
}
