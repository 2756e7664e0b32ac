package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// BytesPerPixel is the pixel stride of every Buffer (8-bit NRGBA).
const BytesPerPixel = 4

// ErrInvalidBuffer is returned when pixel data does not match the declared size.
var ErrInvalidBuffer = errors.New("invalid image buffer")

// Buffer is an immutable in-memory raster image.
//
// A Buffer always holds tightly packed 8-bit NRGBA pixels with its origin at
// (0,0), so len(Pixels()) == Width()*Height()*BytesPerPixel. Operations that
// change an image produce a new Buffer; nothing in this module mutates one
// after construction, which makes Buffers safe to share between goroutines
// without locking.
type Buffer struct {
	img *image.NRGBA
}

// NewBuffer copies img into a new Buffer.
//
// The source may be any image.Image; it is converted to NRGBA and translated
// so that its top-left pixel lands at (0,0). Returns nil for a nil image.
func NewBuffer(img image.Image) *Buffer {
	if img == nil {
		return nil
	}
	return &Buffer{img: imaging.Clone(img)}
}

// FromPixels builds a Buffer from raw NRGBA bytes.
//
// The pixel slice is copied. It must hold exactly width*height*BytesPerPixel
// bytes; otherwise ErrInvalidBuffer is returned.
func FromPixels(width, height int, pix []byte) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBuffer, width, height)
	}
	if want := width * height * BytesPerPixel; len(pix) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%d",
			ErrInvalidBuffer, len(pix), want, width, height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	return &Buffer{img: img}, nil
}

// Width returns the image width in pixels.
func (b *Buffer) Width() int { return b.img.Rect.Dx() }

// Height returns the image height in pixels.
func (b *Buffer) Height() int { return b.img.Rect.Dy() }

// Bounds returns the image rectangle, always anchored at (0,0).
func (b *Buffer) Bounds() image.Rectangle { return b.img.Rect }

// Pixels returns a copy of the NRGBA pixel data.
func (b *Buffer) Pixels() []byte {
	out := make([]byte, len(b.img.Pix))
	copy(out, b.img.Pix)
	return out
}

// Image exposes the underlying image for read-only use by encoders and
// effects. Callers must not modify it.
func (b *Buffer) Image() image.Image { return b.img }

// Equal reports whether two buffers have the same size and pixel content.
func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b == other {
		return true
	}
	return b.img.Rect.Eq(other.img.Rect) && bytes.Equal(b.img.Pix, other.img.Pix)
}

// String describes the buffer size, useful in log fields.
func (b *Buffer) String() string {
	if b == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%dx%d", b.Width(), b.Height())
}
