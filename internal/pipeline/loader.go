package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"grain-analysis/internal/logger"
	"grain-analysis/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ErrLoadFailed is returned when an input image cannot be read or decoded.
var ErrLoadFailed = errors.New("image load failed")

type Loader struct {
	tracker       safe.MemoryTracker
	logger        logger.Logger
	timingTracker TimingTracker
}

func NewLoader(tracker safe.MemoryTracker, timingTracker TimingTracker, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	if timingTracker == nil {
		timingTracker = nopTiming{}
	}
	return &Loader{
		tracker:       tracker,
		logger:        log,
		timingTracker: timingTracker,
	}
}

// LoadFile reads path and decodes it as a 3-channel BGR image.
func (l *Loader) LoadFile(path string) (*safe.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, path, err)
	}

	l.logger.Debug("ImageLoader", "image data read", map[string]interface{}{
		"path":       path,
		"size_bytes": len(data),
	})

	return l.LoadBytes(data, path)
}

// LoadBytes decodes an encoded image (any format OpenCV reads). source only
// labels log entries and errors.
func (l *Loader) LoadBytes(data []byte, source string) (*safe.Mat, error) {
	ctx := l.timingTracker.StartTiming(context.Background(), "opencv_decode")
	defer l.timingTracker.EndTiming(ctx)

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", ErrLoadFailed, source)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, source, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: %s: unsupported or corrupt image", ErrLoadFailed, source)
	}

	img, err := safe.Wrap(mat, l.tracker, "loaded_image")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, source, err)
	}

	l.logger.Info("ImageLoader", "image loaded", map[string]interface{}{
		"source":   source,
		"width":    img.Cols(),
		"height":   img.Rows(),
		"channels": img.Channels(),
	})

	return img, nil
}
