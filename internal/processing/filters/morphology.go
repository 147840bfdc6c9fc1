package filters

import (
	"context"
	"fmt"
	"image"

	"grain-analysis/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MorphologyFilter dilates then erodes with an elliptical element, closing
// small gaps in the binary mask without changing object size.
type MorphologyFilter struct {
	radius int
}

func NewMorphologyFilter(radius int) *MorphologyFilter {
	return &MorphologyFilter{radius: radius}
}

func (m *MorphologyFilter) Name() string {
	return StageMorph
}

func (m *MorphologyFilter) KernelSize() int {
	return 2*m.radius + 1
}

func (m *MorphologyFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateGray(input, "morphology"); err != nil {
		return nil, err
	}
	if m.radius < 0 {
		return nil, fmt.Errorf("structuring element radius must be >= 0, got %d", m.radius)
	}
	if m.radius == 0 {
		return input.Clone()
	}

	return m.applyClosing(input)
}

func (m *MorphologyFilter) applyClosing(src *safe.Mat) (*safe.Mat, error) {
	size := m.KernelSize()
	// The default anchor of a (2r+1)-sized element is its centre (r, r).
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: size, Y: size})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()

	srcMat := src.GetMat()
	gocv.Dilate(srcMat, &dilated, kernel)

	result, err := newLike(src, "morphed")
	if err != nil {
		return nil, err
	}

	resultMat := result.GetMat()
	gocv.Erode(dilated, &resultMat, kernel)

	return result, nil
}
