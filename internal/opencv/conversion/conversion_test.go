package conversion

import (
	"image"
	"image/color"
	"testing"

	"grain-analysis/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestConvertToGrayscaleFromBGR(t *testing.T) {
	src, err := safe.NewZeros(20, 30, gocv.MatTypeCV8UC3, nil, "bgr")
	require.NoError(t, err)
	defer src.Close()

	srcMat := src.GetMat()
	gocv.Rectangle(&srcMat, image.Rect(5, 5, 15, 15), color.RGBA{R: 255, G: 255, B: 255}, -1)

	gray, err := ConvertToGrayscale(src)
	require.NoError(t, err)
	defer gray.Close()

	assert.Equal(t, 1, gray.Channels())
	assert.Equal(t, 20, gray.Rows())
	assert.Equal(t, 30, gray.Cols())

	inside, err := gray.GetUCharAt(10, 10)
	require.NoError(t, err)
	outside, err := gray.GetUCharAt(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), inside)
	assert.Equal(t, uint8(0), outside)
}

func TestConvertToGrayscaleClonesGray(t *testing.T) {
	src, err := safe.NewZeros(5, 5, gocv.MatTypeCV8UC1, nil, "gray")
	require.NoError(t, err)
	defer src.Close()

	out, err := ConvertToGrayscale(src)
	require.NoError(t, err)
	defer out.Close()

	assert.NotEqual(t, src.ID(), out.ID())
}

func TestConvertToGrayscaleRejectsClosed(t *testing.T) {
	src, err := safe.NewZeros(5, 5, gocv.MatTypeCV8UC3, nil, "closed")
	require.NoError(t, err)
	src.Close()

	_, err = ConvertToGrayscale(src)
	assert.Error(t, err)
}

func TestMatToImage(t *testing.T) {
	gray, err := safe.NewZeros(8, 12, gocv.MatTypeCV8UC1, nil, "gray")
	require.NoError(t, err)
	defer gray.Close()

	img, err := MatToImage(gray)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 8), img.Bounds())

	bgr, err := safe.NewZeros(8, 12, gocv.MatTypeCV8UC3, nil, "bgr")
	require.NoError(t, err)
	defer bgr.Close()

	img, err = MatToImage(bgr)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
}
