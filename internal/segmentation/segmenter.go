// Package segmentation implements the routine shared by calibration and
// measurement: blur, Otsu threshold, elliptical closing, Canny edges and
// external contour extraction.
package segmentation

import (
	"context"
	"fmt"

	"grain-analysis/internal/config"
	"grain-analysis/internal/logger"
	"grain-analysis/internal/models"
	"grain-analysis/internal/opencv/safe"
	"grain-analysis/internal/processing/chain"
	"grain-analysis/internal/processing/filters"

	"gocv.io/x/gocv"
)

type Segmenter struct {
	cfg    config.SegmentationConfig
	chain  *chain.ProcessingChain
	logger logger.Logger
}

// Result carries the contours of one run plus the intermediate images the
// diagnostic views show. Close releases the images; Contours stay usable.
type Result struct {
	Contours []models.Contour
	// Level is the Otsu cut point applied to the blurred image. It is 0 for
	// an image of a single intensity.
	Level float64

	trace *chain.Trace
}

func New(cfg config.SegmentationConfig, log logger.Logger) *Segmenter {
	if log == nil {
		log = logger.Nop()
	}

	return &Segmenter{
		cfg: cfg,
		chain: chain.NewProcessingChain(
			filters.NewBoxBlurFilter(cfg.BlurKernel),
			filters.NewOtsuThresholdFilter(cfg.ThresholdValue, cfg.MaxBinaryValue),
			filters.NewMorphologyFilter(cfg.MorphRadius),
			filters.NewCannyFilter(cfg.CannyLow, cfg.CannyHigh()),
		),
		logger: log,
	}
}

// Steps lists the chain step names in execution order.
func (s *Segmenter) Steps() []string {
	return s.chain.GetStepNames()
}

// Segment runs the routine on a single-channel image. gray is not modified.
func (s *Segmenter) Segment(ctx context.Context, gray *safe.Mat) (*Result, error) {
	if err := safe.ValidateGray(gray, "segmentation"); err != nil {
		return nil, err
	}

	trace, err := s.chain.Execute(ctx, gray)
	if err != nil {
		return nil, fmt.Errorf("segmentation chain: %w", err)
	}

	result := &Result{trace: trace}
	result.Level, _ = trace.Value(filters.StageThreshold)

	result.Contours, err = ExtractExternalContours(trace.Output())
	if err != nil {
		result.Close()
		return nil, err
	}

	s.logger.Debug("Segmenter", "segmentation completed", map[string]interface{}{
		"width":      gray.Cols(),
		"height":     gray.Rows(),
		"level":      result.Level,
		"contours":   len(result.Contours),
		"pixel_area": result.PixelArea(),
	})

	return result, nil
}

// ExtractExternalContours traces the outermost boundaries of a binary or edge
// image, collapsing straight runs to their end points. Contours keep the
// detection order reported by OpenCV and carry their closed arc length.
func ExtractExternalContours(edges *safe.Mat) ([]models.Contour, error) {
	if err := safe.ValidateGray(edges, "contour extraction"); err != nil {
		return nil, err
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	points := gocv.FindContoursWithParams(edges.GetMat(), &hierarchy, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer points.Close()

	contours := make([]models.Contour, 0, points.Size())
	for i := 0; i < points.Size(); i++ {
		// Vec4i: next, previous, first child, parent.
		if !hierarchy.Empty() && hierarchy.GetVeciAt(0, i)[3] >= 0 {
			continue
		}

		pv := points.At(i)
		area := gocv.ContourArea(pv)
		if area < 0 {
			area = -area
		}
		contours = append(contours, models.Contour{
			Points:    pv.ToPoints(),
			Area:      area,
			Perimeter: gocv.ArcLength(pv, true),
		})
	}

	return contours, nil
}

func (r *Result) stage(name string) *safe.Mat {
	if r == nil {
		return nil
	}
	m, _ := r.trace.Stage(name)
	return m
}

// Blurred is the smoothed grayscale input.
func (r *Result) Blurred() *safe.Mat { return r.stage(filters.StageBlur) }

// Binary is the thresholded and morphologically closed mask.
func (r *Result) Binary() *safe.Mat { return r.stage(filters.StageMorph) }

func (r *Result) PixelArea() float64 {
	return models.TotalArea(r.Contours)
}

func (r *Result) Close() {
	if r == nil {
		return
	}
	r.trace.Close()
}
