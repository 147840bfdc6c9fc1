package filters

import (
	"context"

	"grain-analysis/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// OtsuThresholdFilter binarises an image at the level OpenCV's Otsu method
// selects from its histogram. Pixels above the level become maxValue, all
// others 0. The nominal level is handed to OpenCV, which ignores it when
// THRESH_OTSU is set.
type OtsuThresholdFilter struct {
	nominal  float32
	maxValue float32
}

func NewOtsuThresholdFilter(nominal, maxValue float32) *OtsuThresholdFilter {
	return &OtsuThresholdFilter{nominal: nominal, maxValue: maxValue}
}

func (o *OtsuThresholdFilter) Name() string {
	return StageThreshold
}

func (o *OtsuThresholdFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	dst, _, err := o.ApplyMeasured(ctx, input)
	return dst, err
}

// ApplyMeasured thresholds input and returns the selected level.
func (o *OtsuThresholdFilter) ApplyMeasured(ctx context.Context, input *safe.Mat) (*safe.Mat, float64, error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}

	if err := safe.ValidateGray(input, "otsu threshold"); err != nil {
		return nil, 0, err
	}

	dst, err := newLike(input, "binary")
	if err != nil {
		return nil, 0, err
	}

	srcMat := input.GetMat()
	dstMat := dst.GetMat()
	level := gocv.Threshold(srcMat, &dstMat, o.nominal, o.maxValue, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	return dst, float64(level), nil
}
