package filter

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Engine keys for the built-in effects.
const (
	KeyChrome   = "CIPhotoEffectChrome"
	KeyFade     = "CIPhotoEffectFade"
	KeyInstant  = "CIPhotoEffectInstant"
	KeyMono     = "CIPhotoEffectMono"
	KeyNoir     = "CIPhotoEffectNoir"
	KeyProcess  = "CIPhotoEffectProcess"
	KeyTonal    = "CIPhotoEffectTonal"
	KeyTransfer = "CIPhotoEffectTransfer"
	KeyCurve    = "CILinearToSRGBToneCurve"
	KeyLinear   = "CISRGBToneCurveToLinear"
)

func builtinEffects() map[string]Effect {
	return map[string]Effect{
		KeyChrome:   chrome,
		KeyFade:     fade,
		KeyInstant:  instant,
		KeyMono:     mono,
		KeyNoir:     noir,
		KeyProcess:  process,
		KeyTonal:    tonal,
		KeyTransfer: transfer,
		KeyCurve:    linearToSRGB,
		KeyLinear:   sRGBToLinear,
	}
}

func chrome(img image.Image) image.Image {
	return imaging.AdjustContrast(adjust.Saturation(img, 0.3), 10)
}

func fade(img image.Image) image.Image {
	lifted := imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R, c.G, c.B = lift(c.R), lift(c.G), lift(c.B)
		return c
	})
	return imaging.AdjustSaturation(lifted, -30)
}

// lift maps [0,255] onto [26,230]: raised blacks, dulled whites.
func lift(v uint8) uint8 {
	return uint8(25.5 + 0.8*float64(v) + 0.5)
}

var instantTint = colorful.Color{R: 0.96, G: 0.87, B: 0.70}

func instant(img image.Image) image.Image {
	warmed := imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r, g, b := toColorful(c).BlendLab(instantTint, 0.2).Clamped().RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: c.A}
	})
	return imaging.AdjustSaturation(warmed, -10)
}

func mono(img image.Image) image.Image {
	return imaging.Grayscale(img)
}

func noir(img image.Image) image.Image {
	return imaging.AdjustSigmoid(imaging.Grayscale(img), 0.5, 7)
}

func process(img image.Image) image.Image {
	cooled := adjust.Apply(img, func(c color.RGBA) color.RGBA {
		return color.RGBA{
			R: clamp8(float64(c.R) * 0.92),
			G: clamp8(float64(c.G) + 4),
			B: clamp8(float64(c.B) * 1.08),
			A: c.A,
		}
	})
	return imaging.AdjustContrast(cooled, 8)
}

func tonal(img image.Image) image.Image {
	gray := imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l, _, _ := toColorful(c).Lab()
		v, _, _ := colorful.Lab(l, 0, 0).Clamped().RGB255()
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
	return imaging.AdjustContrast(gray, -10)
}

func transfer(img image.Image) image.Image {
	return imaging.AdjustSaturation(imaging.AdjustGamma(adjust.Hue(img, 8), 1.1), 10)
}

var (
	linearToSRGBTable = buildLUT(func(v float64) float64 {
		r, _, _ := colorful.LinearRgb(v, v, v).Clamped().RGB255()
		return float64(r)
	})
	sRGBToLinearTable = buildLUT(func(v float64) float64 {
		r, _, _ := colorful.Color{R: v, G: v, B: v}.LinearRgb()
		return r*255 + 0.5
	})
)

// linearToSRGB treats the input as linear light and applies the sRGB
// transfer curve, brightening mid tones.
func linearToSRGB(img image.Image) image.Image {
	return applyLUT(img, &linearToSRGBTable)
}

// sRGBToLinear removes the sRGB transfer curve, darkening mid tones.
func sRGBToLinear(img image.Image) image.Image {
	return applyLUT(img, &sRGBToLinearTable)
}

func buildLUT(fn func(v float64) float64) [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(fn(float64(i) / 255))
	}
	return lut
}

func applyLUT(img image.Image, lut *[256]uint8) image.Image {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
