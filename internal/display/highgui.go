package display

import (
	"context"
	"fmt"
	"time"

	"grain-analysis/internal/logger"
	"grain-analysis/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// HighGUIDisplay shows each surface in an OpenCV window and polls the
// keyboard until the exit key arrives. All calls must come from the main
// goroutine.
type HighGUIDisplay struct {
	poll    time.Duration
	exitKey int
	logger  logger.Logger

	windows map[string]*gocv.Window
	order   []string
}

func NewHighGUIDisplay(poll time.Duration, exitKey int, log logger.Logger) *HighGUIDisplay {
	if log == nil {
		log = logger.Nop()
	}
	return &HighGUIDisplay{
		poll:    poll,
		exitKey: exitKey,
		logger:  log,
		windows: make(map[string]*gocv.Window),
	}
}

func (h *HighGUIDisplay) Show(name string, img *safe.Mat) error {
	if err := safe.ValidateMatForOperation(img, "show "+name); err != nil {
		return err
	}

	w, ok := h.windows[name]
	if !ok {
		w = gocv.NewWindow(name)
		h.windows[name] = w
		h.order = append(h.order, name)
	}

	w.IMShow(img.GetMat())
	return nil
}

func (h *HighGUIDisplay) Wait(ctx context.Context) error {
	delay := int(h.poll / time.Millisecond)
	if delay < 1 {
		delay = 1
	}

	h.logger.Info("HighGUIDisplay", "waiting for exit key", map[string]interface{}{
		"exit_key": h.exitKey,
		"poll_ms":  delay,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := h.anyOpenWindow()
		if w == nil {
			// Nothing to poll: every window was closed by the user.
			return nil
		}

		if key := w.WaitKey(delay); key >= 0 && key&0xff == h.exitKey {
			return nil
		}
	}
}

func (h *HighGUIDisplay) anyOpenWindow() *gocv.Window {
	for _, name := range h.order {
		if w := h.windows[name]; w.IsOpen() {
			return w
		}
	}
	return nil
}

func (h *HighGUIDisplay) Close() error {
	var firstErr error
	for _, name := range h.order {
		if err := h.windows[name].Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close window %s: %w", name, err)
		}
	}
	h.windows = make(map[string]*gocv.Window)
	h.order = nil
	return firstErr
}
