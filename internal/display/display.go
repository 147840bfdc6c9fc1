// Package display renders the named diagnostic surfaces and blocks until the
// user is done looking at them.
package display

import (
	"context"
	"fmt"

	"grain-analysis/internal/config"
	"grain-analysis/internal/logger"
	"grain-analysis/internal/opencv/safe"

	"fyne.io/fyne/v2/app"
)

// Surface names.
const (
	Input       = "Input"
	Threshold   = "Threshold"
	Output      = "Output"
	Calibration = "Calibration"
)

// Surfaces lists every surface in creation order.
var Surfaces = []string{Input, Threshold, Output, Calibration}

const AppID = "com.grainanalysis.viewer"

type Display interface {
	// Show renders img on the named surface. img stays owned by the caller.
	Show(name string, img *safe.Mat) error
	// Wait blocks until the user exits or ctx is cancelled. It returns nil
	// on a user exit and ctx.Err() on cancellation.
	Wait(ctx context.Context) error
	Close() error
}

// New builds the display selected by cfg.Mode.
func New(cfg config.DisplayConfig, log logger.Logger) (Display, error) {
	switch cfg.Mode {
	case config.DisplayFyne:
		return NewFyneDisplay(app.NewWithID(AppID), log), nil
	case config.DisplayHighGUI:
		return NewHighGUIDisplay(cfg.PollInterval, cfg.ExitKey, log), nil
	case config.DisplayDir:
		return NewDirDisplay(cfg.OutputDir, cfg.Format, log)
	case config.DisplayNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown display mode %q", cfg.Mode)
	}
}

// Nop discards every image and never waits.
type Nop struct{}

func (Nop) Show(string, *safe.Mat) error  { return nil }
func (Nop) Wait(context.Context) error    { return nil }
func (Nop) Close() error                  { return nil }
