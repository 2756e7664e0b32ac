package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// SampleImage renders the built-in sample photo used for filter thumbnails
// and as the initial working image.
//
// The picture is a hue wheel in HCL space: hue follows the angle around the
// centre, chroma grows with the radius and lightness falls from top to bottom.
// That gives every filter skin tones, saturated colours, highlights and
// shadows to act on, so the thumbnails differ visibly from one another.
// The output is deterministic for a given size.
func SampleImage(width, height int) *Buffer {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	cx, cy := float64(width)/2, float64(height)/2
	maxR := math.Hypot(cx, cy)

	for y := 0; y < height; y++ {
		l := 0.85 - 0.55*float64(y)/float64(max(height-1, 1))
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			hue := math.Mod(math.Atan2(dy, dx)*180/math.Pi+360, 360)
			chroma := 0.1 + 0.6*math.Hypot(dx, dy)/maxR

			r, g, b := colorful.Hcl(hue, chroma, l).Clamped().RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}

	return &Buffer{img: img}
}
