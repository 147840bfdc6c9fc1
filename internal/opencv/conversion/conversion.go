package conversion

import (
	"fmt"
	"image"

	"grain-analysis/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ConvertToGrayscale converts multi-channel images to single-channel grayscale.
// The result reports to the same memory tracker as src.
func ConvertToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "grayscale conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if src.Channels() == 1 {
		return src.Clone()
	}

	dst, err := safe.NewMatWithTracker(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, src.Tracker(), src.Tag()+"_gray")
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	switch src.Channels() {
	case 3:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRAToGray)
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	return dst, nil
}

// MatToImage converts an 8-bit Mat (1, 3 or 4 channels) to a standard Go image.
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	switch src.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return nil, fmt.Errorf("unsupported Mat type for image conversion: %v", src.Type())
	}

	mat := src.GetMat()
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat to image conversion failed: %w", err)
	}

	return img, nil
}
