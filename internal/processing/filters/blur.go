package filters

import (
	"context"
	"fmt"
	"image"

	"grain-analysis/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// BoxBlurFilter averages each pixel over a fixed kernel to suppress
// high-frequency noise before thresholding.
type BoxBlurFilter struct {
	kernel int
}

func NewBoxBlurFilter(kernel int) *BoxBlurFilter {
	return &BoxBlurFilter{kernel: kernel}
}

func (b *BoxBlurFilter) Name() string {
	return StageBlur
}

func (b *BoxBlurFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateGray(input, "box blur"); err != nil {
		return nil, err
	}
	if b.kernel < 1 {
		return nil, fmt.Errorf("box blur kernel must be >= 1, got %d", b.kernel)
	}

	dst, err := newLike(input, "blurred")
	if err != nil {
		return nil, err
	}

	srcMat := input.GetMat()
	dstMat := dst.GetMat()
	gocv.Blur(srcMat, &dstMat, image.Point{X: b.kernel, Y: b.kernel})

	return dst, nil
}
