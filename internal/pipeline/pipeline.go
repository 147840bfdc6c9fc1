// Package pipeline runs the two analysis phases in order: calibration
// derives the pixel to mm² conversion factor, measurement applies it to the
// grain photograph. Every phase renders its diagnostic surfaces on the
// configured display.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"grain-analysis/internal/analysis"
	"grain-analysis/internal/config"
	"grain-analysis/internal/display"
	"grain-analysis/internal/logger"
	"grain-analysis/internal/models"
	"grain-analysis/internal/opencv/conversion"
	"grain-analysis/internal/opencv/safe"
	"grain-analysis/internal/render"
	"grain-analysis/internal/segmentation"
)

// Context carries state from the calibration phase to the measurement phase.
// It must not be copied after first use.
type Context struct {
	Factor models.ConversionFactor
}

func NewContext() *Context {
	return &Context{}
}

// Report collects the outcome of a full run. Measurement is nil when the run
// stopped before the measurement phase finished.
type Report struct {
	Calibration models.Calibration
	Measurement *models.MeasurementResult
}

// Summary renders the report as a single line.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "calibration: contours=%d pixel_area=%.2f factor=%.4f px2/mm2",
		r.Calibration.ContourCount, r.Calibration.PixelArea, r.Calibration.Factor)

	if r.Measurement == nil {
		b.WriteString("; measurement: not run")
		return b.String()
	}

	m := r.Measurement
	fmt.Fprintf(&b, "; grains=%d total_area=%.4f mm2", m.GrainCount, m.TotalAreaPhysical)
	if m.HasGrains() {
		fmt.Fprintf(&b, " mean_area=%.4f mm2", m.MeanAreaPhysical)
	} else {
		b.WriteString(" mean_area=n/a")
	}
	return b.String()
}

type Pipeline struct {
	cfg           *config.Config
	segmenter     *segmentation.Segmenter
	display       display.Display
	palette       *render.Palette
	tracker       safe.MemoryTracker
	timingTracker TimingTracker
	logger        logger.Logger
}

// New wires a pipeline. disp, timingTracker and log may be nil.
func New(cfg *config.Config, disp display.Display, tracker safe.MemoryTracker, timingTracker TimingTracker, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if disp == nil {
		disp = display.Nop{}
	}
	if timingTracker == nil {
		timingTracker = nopTiming{}
	}

	return &Pipeline{
		cfg:           cfg,
		segmenter:     segmentation.New(cfg.Segmentation, log),
		display:       disp,
		palette:       render.NewPalette(cfg.Render.RandomSeed),
		tracker:       tracker,
		timingTracker: timingTracker,
		logger:        log,
	}
}

// Run calibrates on calibration, then measures sample with the resulting
// factor. The returned report holds whatever completed, also on error.
func (p *Pipeline) Run(ctx context.Context, calibration, sample *safe.Mat) (*Report, error) {
	p.palette = render.NewPalette(p.cfg.Render.RandomSeed)

	pc := NewContext()
	report := &Report{}

	var err error
	report.Calibration, err = p.Calibrate(ctx, pc, calibration)
	if err != nil && !errors.Is(err, models.ErrNoContours) {
		return report, err
	}

	result, err := p.Measure(ctx, pc, sample)
	if err != nil {
		return report, err
	}
	report.Measurement = &result

	return report, nil
}

// Calibrate segments the reference image and stores the conversion factor
// in pc. When no contour is found the factor is stored as 0 and the returned
// error wraps models.ErrNoContours; a later Measure then fails with
// models.ErrUncalibrated.
func (p *Pipeline) Calibrate(ctx context.Context, pc *Context, img *safe.Mat) (models.Calibration, error) {
	phaseCtx := p.timingTracker.StartTiming(ctx, "calibration")
	defer p.timingTracker.EndTiming(phaseCtx)

	seg, err := p.segment(phaseCtx, img)
	if err != nil {
		return models.Calibration{}, fmt.Errorf("calibration: %w", err)
	}
	defer seg.Close()

	cal, calErr := analysis.Calibrate(seg.Contours, p.cfg.KnownArea)
	if calErr != nil && !errors.Is(calErr, models.ErrNoContours) {
		return cal, calErr
	}

	if err := pc.Factor.Set(cal.Factor); err != nil {
		return cal, fmt.Errorf("calibration: %w", err)
	}

	if calErr != nil {
		p.logger.Warning("Pipeline", "no reference contour found, conversion factor is 0", map[string]interface{}{
			"level": seg.Level,
		})
	} else {
		p.logger.Info("Pipeline", "calibration completed", map[string]interface{}{
			"contours":   cal.ContourCount,
			"pixel_area": cal.PixelArea,
			"known_area": cal.KnownArea,
			"factor":     cal.Factor,
		})
	}

	if err := p.renderContours(display.Calibration, img, seg.Contours, p.cfg.Render.CalibrationThickness, render.CalibrationLines(cal)); err != nil {
		return cal, err
	}

	return cal, calErr
}

// Measure segments the grain image and converts the contour areas with the
// factor held by pc.
func (p *Pipeline) Measure(ctx context.Context, pc *Context, img *safe.Mat) (models.MeasurementResult, error) {
	factor, err := pc.Factor.Usable()
	if err != nil {
		return models.MeasurementResult{}, fmt.Errorf("measurement: %w", err)
	}

	phaseCtx := p.timingTracker.StartTiming(ctx, "measurement")
	defer p.timingTracker.EndTiming(phaseCtx)

	seg, err := p.segment(phaseCtx, img)
	if err != nil {
		return models.MeasurementResult{}, fmt.Errorf("measurement: %w", err)
	}
	defer seg.Close()

	result, err := analysis.Measure(seg.Contours, factor)
	if err != nil {
		return result, fmt.Errorf("measurement: %w", err)
	}

	fields := map[string]interface{}{
		"grains":         result.GrainCount,
		"total_area_px":  result.TotalAreaPixels,
		"total_area_mm2": result.TotalAreaPhysical,
	}
	if result.HasGrains() {
		fields["mean_area_mm2"] = result.MeanAreaPhysical
		fields["median_area_mm2"] = result.Stats.Median
		fields["stddev_area_mm2"] = finiteOrZero(result.Stats.StdDev)
		p.logger.Info("Pipeline", "measurement completed", fields)
	} else {
		p.logger.Warning("Pipeline", "no grain found in sample", fields)
	}

	for _, g := range result.Grains {
		p.logger.Debug("Pipeline", "grain measured", map[string]interface{}{
			"index":        g.Index,
			"area_px":      g.Pixels,
			"area_mm2":     g.Physical,
			"perimeter_px": g.Perimeter,
		})
	}

	p.show(display.Input, seg.Blurred())
	p.show(display.Threshold, seg.Binary())

	if err := p.renderContours(display.Output, img, seg.Contours, p.cfg.Render.OutputThickness, render.MeasurementLines(result)); err != nil {
		return result, err
	}

	return result, nil
}

func (p *Pipeline) segment(ctx context.Context, img *safe.Mat) (*segmentation.Result, error) {
	gray, err := conversion.ConvertToGrayscale(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	return p.segmenter.Segment(ctx, gray)
}

func (p *Pipeline) renderContours(surface string, like *safe.Mat, contours []models.Contour, thickness int, lines []string) error {
	canvas, err := render.Contours(like.Rows(), like.Cols(), contours, thickness, p.palette, p.tracker, strings.ToLower(surface))
	if err != nil {
		return fmt.Errorf("render %s: %w", surface, err)
	}
	defer canvas.Close()

	if err := render.Annotate(canvas, lines...); err != nil {
		return fmt.Errorf("render %s: %w", surface, err)
	}

	p.show(surface, canvas)
	return nil
}

// show hands img to the display. Display failures are logged and do not
// affect the analysis result.
func (p *Pipeline) show(surface string, img *safe.Mat) {
	if img == nil {
		return
	}
	if err := p.display.Show(surface, img); err != nil {
		p.logger.Error("Pipeline", err, map[string]interface{}{
			"surface": surface,
		})
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
