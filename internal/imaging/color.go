package imaging

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBAColor represents an RGBA color with 8-bit components including alpha.
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a pixel color in several representations.
//
// Comparing the same pixel across filters is the quickest way to see what an
// effect does: Mono and Noir zero the saturation, Fade lifts the lightness of
// dark pixels, Linear darkens mid tones.
type ColorResult struct {
	X    int       `json:"x"`
	Y    int       `json:"y"`
	Hex  string    `json:"hex"`  // Hex format "#RRGGBB" (no alpha)
	RGBA RGBAColor `json:"rgba"` // RGBA components with alpha
	HSL  HSLColor  `json:"hsl"`  // HSL representation
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are 0-based with origin at top-left. Returns an error if (x, y)
// lies outside the buffer.
func SampleColor(buf *Buffer, x, y int) (*ColorResult, error) {
	if buf == nil {
		return nil, fmt.Errorf("no image to sample")
	}
	if x < 0 || x >= buf.Width() || y < 0 || y >= buf.Height() {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds %dx%d",
			x, y, buf.Width(), buf.Height())
	}

	c := buf.img.NRGBAAt(x, y)
	cf := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
	h, s, l := cf.Hsl()

	return &ColorResult{
		X:    x,
		Y:    y,
		Hex:  fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		RGBA: RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSL: HSLColor{
			H: int(h),
			S: int(s * 100),
			L: int(l * 100),
		},
	}, nil
}
