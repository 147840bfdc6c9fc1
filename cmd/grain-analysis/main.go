package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"grain-analysis/internal/config"
	"grain-analysis/internal/debug/timing"
	"grain-analysis/internal/display"
	"grain-analysis/internal/logger"
	"grain-analysis/internal/opencv/memory"
	"grain-analysis/internal/opencv/safe"
	"grain-analysis/internal/pipeline"
	"grain-analysis/internal/shutdown"
)

const (
	AppName    = "grain-analysis"
	AppVersion = "1.0.0"
)

// Exit codes.
const (
	exitOK            = 0
	exitLoadFailed    = 1
	exitInvalidConfig = 2
	exitAnalysis      = 3
)

// Application owns the long-lived components of one CLI run.
type Application struct {
	cfg    *config.Config
	logger logger.Logger
	stdout io.Writer

	memoryTracker *memory.Tracker
	timingTracker *timing.Tracker
	shutdown      *shutdown.Manager
	display       display.Display
	loader        *pipeline.Loader
	pipeline      *pipeline.Pipeline
}

func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	cfg, code := loadConfig(args, getenv, stderr)
	if cfg == nil {
		return code
	}

	appLogger := logger.NewZerolog(stderr, cfg.LogLevel)
	if stderr == os.Stderr {
		appLogger = logger.NewConsoleLogger(cfg.LogLevel)
	}

	application, err := NewApplication(cfg, appLogger, stdout)
	if err != nil {
		appLogger.Error("Application", err, nil)
		return exitInvalidConfig
	}
	defer application.shutdown.Shutdown()

	application.shutdown.Listen()

	return application.Run(application.shutdown.Context())
}

// loadConfig layers defaults, environment and flags. A nil config means the
// process should exit with the returned code.
func loadConfig(args []string, getenv func(string) string, stderr io.Writer) (*config.Config, int) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(getenv); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", AppName, err)
		return nil, exitInvalidConfig
	}

	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, exitOK
		}
		return nil, exitInvalidConfig
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "%s: unexpected arguments: %v\n", AppName, fs.Args())
		return nil, exitInvalidConfig
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: invalid configuration:\n%v\n", AppName, err)
		return nil, exitInvalidConfig
	}

	return cfg, exitOK
}

func NewApplication(cfg *config.Config, log logger.Logger, stdout io.Writer) (*Application, error) {
	log.Info("Application", "starting", map[string]interface{}{
		"version":     AppVersion,
		"go_version":  runtime.Version(),
		"display":     string(cfg.Display.Mode),
		"calibration": cfg.CalibrationPath,
		"sample":      cfg.SamplePath,
		"known_area":  cfg.KnownArea,
	})

	memTracker := memory.NewTracker(log)
	timingTracker := timing.NewTracker(log)
	timingTracker.SetEnabled(cfg.LogLevel == logger.DebugLevel)
	shutdownManager := shutdown.NewManager(log)

	shutdownManager.Register("memory tracker", memTracker)
	shutdownManager.Register("timing tracker", timingTracker)

	disp, err := display.New(cfg.Display, log)
	if err != nil {
		shutdownManager.Shutdown()
		return nil, fmt.Errorf("display setup failed: %w", err)
	}
	shutdownManager.Register("display", shutdown.Func(func() {
		if err := disp.Close(); err != nil {
			log.Error("Application", err, map[string]interface{}{"component": "display"})
		}
	}))

	return &Application{
		cfg:           cfg,
		logger:        log,
		stdout:        stdout,
		memoryTracker: memTracker,
		timingTracker: timingTracker,
		shutdown:      shutdownManager,
		display:       disp,
		loader:        pipeline.NewLoader(memTracker, timingTracker, log),
		pipeline:      pipeline.New(cfg, disp, memTracker, timingTracker, log),
	}, nil
}

// Run loads both images, runs the pipeline, prints the summary and keeps the
// diagnostic surfaces up until the user exits or ctx is cancelled.
func (app *Application) Run(ctx context.Context) int {
	calibration, err := app.loader.LoadFile(app.cfg.CalibrationPath)
	if err != nil {
		app.logger.Error("Application", err, map[string]interface{}{"role": "calibration"})
		return exitLoadFailed
	}
	defer calibration.Close()

	sample, err := app.loader.LoadFile(app.cfg.SamplePath)
	if err != nil {
		app.logger.Error("Application", err, map[string]interface{}{"role": "sample"})
		return exitLoadFailed
	}
	defer sample.Close()

	code := app.analyse(ctx, calibration, sample)

	if ctx.Err() != nil {
		return code
	}

	app.logger.Debug("Application", "waiting for display exit", nil)
	if err := app.display.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error("Application", err, nil)
	}

	return code
}

func (app *Application) analyse(ctx context.Context, calibration, sample *safe.Mat) int {
	report, err := app.pipeline.Run(ctx, calibration, sample)
	if report != nil {
		fmt.Fprintln(app.stdout, report.Summary())
	}

	if err != nil {
		app.logger.Error("Application", err, nil)
		return exitAnalysis
	}

	if m := report.Measurement; m != nil && m.HasGrains() {
		app.logger.Info("Application", "grain statistics", map[string]interface{}{
			"min_mm2":    m.Stats.Min,
			"max_mm2":    m.Stats.Max,
			"median_mm2": m.Stats.Median,
		})
	}

	return exitOK
}
