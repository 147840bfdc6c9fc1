package display

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"grain-analysis/internal/logger"
	"grain-analysis/internal/opencv/conversion"
	"grain-analysis/internal/opencv/safe"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// DirDisplay writes each surface to <dir>/<name>.<ext>. It suits headless
// runs and never blocks in Wait.
type DirDisplay struct {
	dir    string
	format string
	logger logger.Logger

	mu      sync.Mutex
	written map[string]string
}

func NewDirDisplay(dir, format string, log logger.Logger) (*DirDisplay, error) {
	if log == nil {
		log = logger.Nop()
	}

	format = normaliseFormat(format)
	if _, err := extension(format); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &DirDisplay{
		dir:     dir,
		format:  format,
		logger:  log,
		written: make(map[string]string),
	}, nil
}

func normaliseFormat(format string) string {
	switch f := strings.ToLower(format); f {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	case "":
		return "png"
	default:
		return f
	}
}

func extension(format string) (string, error) {
	switch format {
	case "png":
		return ".png", nil
	case "jpeg":
		return ".jpg", nil
	case "bmp":
		return ".bmp", nil
	case "tiff":
		return ".tiff", nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

func (d *DirDisplay) Show(name string, img *safe.Mat) error {
	goImg, err := conversion.MatToImage(img)
	if err != nil {
		return fmt.Errorf("surface %s: %w", name, err)
	}

	ext, _ := extension(d.format)
	path := filepath.Join(d.dir, name+ext)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("surface %s: %w", name, err)
	}

	if err := d.encode(f, goImg); err != nil {
		f.Close()
		return fmt.Errorf("surface %s: encode %s: %w", name, d.format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("surface %s: %w", name, err)
	}

	d.mu.Lock()
	d.written[name] = path
	d.mu.Unlock()

	d.logger.Info("DirDisplay", "surface written", map[string]interface{}{
		"surface": name,
		"path":    path,
	})
	return nil
}

func (d *DirDisplay) encode(w io.Writer, img image.Image) error {
	switch d.format {
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return png.Encode(w, img)
	}
}

// Written maps surface names to the files written for them.
func (d *DirDisplay) Written() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]string, len(d.written))
	for k, v := range d.written {
		out[k] = v
	}
	return out
}

// Wait returns at once: the surfaces are already on disk.
func (d *DirDisplay) Wait(ctx context.Context) error {
	d.logger.Info("DirDisplay", "surfaces written", map[string]interface{}{
		"dir":   d.dir,
		"files": d.Written(),
	})
	return nil
}

func (d *DirDisplay) Close() error {
	return nil
}
