package filters

import (
	"context"
	"fmt"
	"math"

	"grain-analysis/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// CannyFilter extracts thin object boundaries with hysteresis thresholds.
type CannyFilter struct {
	low  float32
	high float32
}

func NewCannyFilter(low, high float32) *CannyFilter {
	return &CannyFilter{low: low, high: high}
}

func (c *CannyFilter) Name() string {
	return StageEdges
}

func (c *CannyFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateGray(input, "canny"); err != nil {
		return nil, err
	}
	if !(c.low > 0 && c.high >= c.low) || math.IsInf(float64(c.high), 0) {
		return nil, fmt.Errorf("invalid canny thresholds low=%g high=%g", c.low, c.high)
	}

	dst, err := newLike(input, "edges")
	if err != nil {
		return nil, err
	}

	srcMat := input.GetMat()
	dstMat := dst.GetMat()
	gocv.Canny(srcMat, &dstMat, c.low, c.high)

	return dst, nil
}
