package imaging

import (
	"errors"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
)

// ErrResize is returned when a scale-to-fit step cannot produce an output.
var ErrResize = errors.New("resize failed")

// FitDimensions computes the scale-to-fit size of a width x height image
// bounded by maxDim on its longer side.
//
// The aspect ratio is preserved and the image is never upscaled: when both
// sides are already within maxDim the input size is returned unchanged.
// Otherwise the longer side becomes exactly maxDim and the shorter side is
// rounded to the nearest pixel (minimum 1).
func FitDimensions(width, height, maxDim int) (int, int) {
	if width <= maxDim && height <= maxDim {
		return width, height
	}
	if width >= height {
		h := int(math.Round(float64(height) * float64(maxDim) / float64(width)))
		return maxDim, max(h, 1)
	}
	w := int(math.Round(float64(width) * float64(maxDim) / float64(height)))
	return max(w, 1), maxDim
}

// ScaleToFit downsizes src so that its longer side is at most maxDim.
//
// Parameters:
//   - src: The image to resize. Must be non-nil and non-empty.
//   - maxDim: The maximum display dimension in pixels. Must be positive.
//
// Returns:
//   - *Buffer: The resized image, or src itself when no resize is needed.
//   - error: ErrResize (wrapped) if the input is unusable or the resampler fails.
//
// Resampling uses the Lanczos filter. Only the output dimensions are part of
// the contract; the exact resampled pixels are not.
func ScaleToFit(src *Buffer, maxDim int) (out *Buffer, err error) {
	if src == nil || src.Width() == 0 || src.Height() == 0 {
		return nil, fmt.Errorf("%w: empty source image", ErrResize)
	}
	if maxDim <= 0 {
		return nil, fmt.Errorf("%w: invalid maximum dimension %d", ErrResize, maxDim)
	}

	w, h := FitDimensions(src.Width(), src.Height(), maxDim)
	if w == src.Width() && h == src.Height() {
		return src, nil
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrResize, r)
		}
	}()

	resized := imaging.Resize(src.Image(), w, h, imaging.Lanczos)
	if resized == nil || resized.Rect.Dx() != w || resized.Rect.Dy() != h {
		return nil, fmt.Errorf("%w: resampler produced no %dx%d output", ErrResize, w, h)
	}
	return &Buffer{img: resized}, nil
}
