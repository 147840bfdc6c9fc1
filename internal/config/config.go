// Package config holds every tunable of the grain analysis pipeline. Defaults
// are the values the bench photographs were tuned with.
package config

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"grain-analysis/internal/logger"
)

type DisplayMode string

const (
	DisplayFyne    DisplayMode = "fyne"
	DisplayHighGUI DisplayMode = "highgui"
	DisplayDir     DisplayMode = "dir"
	DisplayNone    DisplayMode = "none"
)

// SegmentationConfig parameterises the shared segmentation routine.
type SegmentationConfig struct {
	// BlurKernel is the box blur kernel edge in pixels.
	BlurKernel int
	// ThresholdValue is the nominal cut handed to OpenCV; Otsu selection
	// replaces it with the per-image optimum.
	ThresholdValue float32
	// MaxBinaryValue is the foreground value written by the threshold.
	MaxBinaryValue float32
	// MorphRadius gives an elliptical element of size 2*r+1.
	MorphRadius int
	// CannyLow is the lower hysteresis threshold, the upper one is
	// CannyLow*CannyRatio.
	CannyLow   float32
	CannyRatio float32
}

func (s SegmentationConfig) CannyHigh() float32 {
	return s.CannyLow * s.CannyRatio
}

type RenderConfig struct {
	CalibrationThickness int
	OutputThickness      int
	// RandomSeed feeds the contour colour generator so renders are repeatable.
	RandomSeed int64
}

type DisplayConfig struct {
	Mode         DisplayMode
	OutputDir    string
	Format       string
	PollInterval time.Duration
	ExitKey      int
}

type Config struct {
	CalibrationPath string
	SamplePath      string
	// KnownArea is the cumulative physical area of the calibration shapes in mm².
	KnownArea float64

	Segmentation SegmentationConfig
	Render       RenderConfig
	Display      DisplayConfig

	LogLevel logger.LogLevel
}

func Default() *Config {
	return &Config{
		CalibrationPath: "../data/calibration.jpg",
		SamplePath:      "../data/grain.jpg",
		KnownArea:       100,
		Segmentation: SegmentationConfig{
			BlurKernel:     4,
			ThresholdValue: 235,
			MaxBinaryValue: 255,
			MorphRadius:    2,
			CannyLow:       8,
			CannyRatio:     2,
		},
		Render: RenderConfig{
			CalibrationThickness: 1,
			OutputThickness:      3,
			RandomSeed:           12345,
		},
		Display: DisplayConfig{
			Mode:         DisplayFyne,
			OutputDir:    "out",
			Format:       "png",
			PollInterval: 20 * time.Millisecond,
			ExitKey:      27,
		},
		LogLevel: logger.InfoLevel,
	}
}

// ApplyEnv overlays LOG_LEVEL, DEBUG, GRAIN_DISPLAY and GRAIN_OUT_DIR.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := logger.ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
		c.LogLevel = parsed
	} else if getenv("DEBUG") == "1" {
		c.LogLevel = logger.DebugLevel
	}

	if mode := getenv("GRAIN_DISPLAY"); mode != "" {
		c.Display.Mode = DisplayMode(strings.ToLower(mode))
	}
	if dir := getenv("GRAIN_OUT_DIR"); dir != "" {
		c.Display.OutputDir = dir
	}

	return nil
}

// BindFlags registers one flag per field, defaulting to the current values.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.CalibrationPath, "calibration", c.CalibrationPath, "Path to the calibration reference image")
	fs.StringVar(&c.SamplePath, "sample", c.SamplePath, "Path to the grain sample image")
	fs.Float64Var(&c.KnownArea, "known-area", c.KnownArea, "Physical area of the calibration shapes in mm2")

	fs.IntVar(&c.Segmentation.BlurKernel, "blur", c.Segmentation.BlurKernel, "Box blur kernel size")
	fs.Func("threshold", fmt.Sprintf("Nominal binary threshold (default %g)", c.Segmentation.ThresholdValue), float32Setter(&c.Segmentation.ThresholdValue))
	fs.Func("canny-low", fmt.Sprintf("Canny low threshold (default %g)", c.Segmentation.CannyLow), float32Setter(&c.Segmentation.CannyLow))
	fs.Func("canny-ratio", fmt.Sprintf("Canny high/low ratio (default %g)", c.Segmentation.CannyRatio), float32Setter(&c.Segmentation.CannyRatio))
	fs.IntVar(&c.Segmentation.MorphRadius, "morph-radius", c.Segmentation.MorphRadius, "Elliptical structuring element radius")

	fs.IntVar(&c.Render.CalibrationThickness, "cal-thickness", c.Render.CalibrationThickness, "Contour line thickness on the calibration render")
	fs.IntVar(&c.Render.OutputThickness, "out-thickness", c.Render.OutputThickness, "Contour line thickness on the grain render")
	fs.Int64Var(&c.Render.RandomSeed, "seed", c.Render.RandomSeed, "Seed for contour colours")

	fs.Func("display", fmt.Sprintf("Display backend: fyne, highgui, dir or none (default %s)", c.Display.Mode), func(s string) error {
		c.Display.Mode = DisplayMode(strings.ToLower(s))
		return nil
	})
	fs.StringVar(&c.Display.OutputDir, "out-dir", c.Display.OutputDir, "Output directory for the dir display")
	fs.StringVar(&c.Display.Format, "format", c.Display.Format, "Image format for the dir display: png, jpeg, bmp or tiff")
	fs.DurationVar(&c.Display.PollInterval, "poll", c.Display.PollInterval, "Key polling interval for the highgui display")
	fs.IntVar(&c.Display.ExitKey, "exit-key", c.Display.ExitKey, "Key code that ends the display wait")

	fs.Func("log-level", fmt.Sprintf("Log level: debug, info, warn, error (default %s)", c.LogLevel), func(s string) error {
		lvl, err := logger.ParseLevel(s)
		if err != nil {
			return err
		}
		c.LogLevel = lvl
		return nil
	})
}

func float32Setter(dst *float32) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*dst = float32(v)
		return nil
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.CalibrationPath == "" {
		errs = append(errs, errors.New("calibration path is empty"))
	}
	if c.SamplePath == "" {
		errs = append(errs, errors.New("sample path is empty"))
	}
	if !positive(c.KnownArea) {
		errs = append(errs, fmt.Errorf("known area must be a positive finite number, got %g", c.KnownArea))
	}

	s := c.Segmentation
	if s.BlurKernel < 1 {
		errs = append(errs, fmt.Errorf("blur kernel must be >= 1, got %d", s.BlurKernel))
	}
	if !(s.ThresholdValue >= 0 && s.ThresholdValue <= 255) {
		errs = append(errs, fmt.Errorf("threshold must be in [0,255], got %g", s.ThresholdValue))
	}
	if !(s.MaxBinaryValue > 0 && s.MaxBinaryValue <= 255) {
		errs = append(errs, fmt.Errorf("max binary value must be in (0,255], got %g", s.MaxBinaryValue))
	}
	if s.MorphRadius < 0 {
		errs = append(errs, fmt.Errorf("morph radius must be >= 0, got %d", s.MorphRadius))
	}
	if !positive(float64(s.CannyLow)) {
		errs = append(errs, fmt.Errorf("canny low threshold must be a positive finite number, got %g", s.CannyLow))
	}
	if !(s.CannyRatio >= 1) || math.IsInf(float64(s.CannyRatio), 0) {
		errs = append(errs, fmt.Errorf("canny ratio must be a finite number >= 1, got %g", s.CannyRatio))
	}
	if high := float64(s.CannyHigh()); math.IsInf(high, 0) {
		errs = append(errs, fmt.Errorf("canny high threshold overflows: %g x %g", s.CannyLow, s.CannyRatio))
	}

	if c.Render.CalibrationThickness < 1 || c.Render.OutputThickness < 1 {
		errs = append(errs, errors.New("contour thickness must be >= 1"))
	}

	switch c.Display.Mode {
	case DisplayFyne, DisplayHighGUI, DisplayNone:
	case DisplayDir:
		if c.Display.OutputDir == "" {
			errs = append(errs, errors.New("dir display needs an output directory"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown display mode %q", c.Display.Mode))
	}
	switch c.Display.Format {
	case "png", "jpeg", "jpg", "bmp", "tiff", "tif":
	default:
		errs = append(errs, fmt.Errorf("unsupported output format %q", c.Display.Format))
	}
	if c.Display.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.Display.PollInterval))
	}

	return errors.Join(errs...)
}

// positive rejects zero, negatives, NaN and infinities.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
