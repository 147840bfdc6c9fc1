package display

import (
	"context"
	"image"
	"sync"

	"grain-analysis/internal/logger"
	"grain-analysis/internal/opencv/conversion"
	"grain-analysis/internal/opencv/safe"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

const maxSurfaceEdge = 800

// FyneDisplay opens one window per surface. Escape on any window, or
// closing one, ends Wait. Show must be called before Wait, from the main
// goroutine.
type FyneDisplay struct {
	app    fyne.App
	logger logger.Logger

	windows map[string]fyne.Window
	images  map[string]*canvas.Image
	order   []string

	exitOnce sync.Once
	exited   chan struct{}
}

func NewFyneDisplay(a fyne.App, log logger.Logger) *FyneDisplay {
	if log == nil {
		log = logger.Nop()
	}
	return &FyneDisplay{
		app:     a,
		logger:  log,
		windows: make(map[string]fyne.Window),
		images:  make(map[string]*canvas.Image),
		exited:  make(chan struct{}),
	}
}

func (f *FyneDisplay) Show(name string, img *safe.Mat) error {
	goImg, err := conversion.MatToImage(img)
	if err != nil {
		return err
	}

	if existing, ok := f.images[name]; ok {
		existing.Image = goImg
		existing.SetMinSize(surfaceSize(goImg.Bounds()))
		existing.Refresh()
		return nil
	}

	imgCanvas := canvas.NewImageFromImage(goImg)
	imgCanvas.FillMode = canvas.ImageFillContain
	imgCanvas.ScaleMode = canvas.ImageScaleSmooth
	imgCanvas.SetMinSize(surfaceSize(goImg.Bounds()))

	w := f.app.NewWindow(name)
	w.SetContent(imgCanvas)
	w.Canvas().SetOnTypedKey(f.onKey)
	w.SetOnClosed(f.requestExit)
	w.Show()

	f.windows[name] = w
	f.images[name] = imgCanvas
	f.order = append(f.order, name)

	return nil
}

// surfaceSize scales bounds down so the longest edge fits maxSurfaceEdge.
func surfaceSize(bounds image.Rectangle) fyne.Size {
	w, h := float32(bounds.Dx()), float32(bounds.Dy())
	longest := w
	if h > longest {
		longest = h
	}
	if longest > maxSurfaceEdge {
		scale := maxSurfaceEdge / longest
		w *= scale
		h *= scale
	}
	return fyne.NewSize(w, h)
}

func (f *FyneDisplay) onKey(ev *fyne.KeyEvent) {
	if ev.Name == fyne.KeyEscape {
		f.logger.Debug("FyneDisplay", "exit key pressed", nil)
		f.requestExit()
	}
}

func (f *FyneDisplay) requestExit() {
	f.exitOnce.Do(func() {
		close(f.exited)
		f.app.Quit()
	})
}

// Wait runs the fyne event loop on the calling goroutine.
func (f *FyneDisplay) Wait(ctx context.Context) error {
	if len(f.windows) == 0 {
		return nil
	}

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(f.requestExit)
		case <-stop:
		}
	}()

	f.logger.Info("FyneDisplay", "showing surfaces", map[string]interface{}{
		"surfaces": f.order,
	})
	f.app.Run()

	return ctx.Err()
}

func (f *FyneDisplay) Close() error {
	for _, name := range f.order {
		f.windows[name].SetOnClosed(nil)
		f.windows[name].Close()
	}
	f.windows = make(map[string]fyne.Window)
	f.images = make(map[string]*canvas.Image)
	f.order = nil
	return nil
}
