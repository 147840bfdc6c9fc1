// Package filters holds the processing steps of the segmentation chain.
package filters

import (
	"fmt"

	"grain-analysis/internal/opencv/safe"
)

// Stage names, usable with chain.Trace.Stage.
const (
	StageBlur      = "box_blur"
	StageThreshold = "otsu_threshold"
	StageMorph     = "morphology"
	StageEdges     = "canny_edges"
)

func newLike(src *safe.Mat, tag string) (*safe.Mat, error) {
	dst, err := safe.NewMatWithTracker(src.Rows(), src.Cols(), src.Type(), src.Tracker(), tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s Mat: %w", tag, err)
	}
	return dst, nil
}
