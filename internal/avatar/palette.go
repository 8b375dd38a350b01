package avatar

import colorful "github.com/lucasb-eyer/go-colorful"

// HSL is a hue/saturation/lightness triple with every component in [0,1].
type HSL struct {
	H, S, L float64
}

// Color converts to RGB.
func (c HSL) Color() colorful.Color {
	return colorful.Hsl(c.H*360, c.S, c.L).Clamped()
}

// SkinHSL maps the skin tone slider linearly onto hue [0.05,0.15],
// saturation [0.3,0.7] and lightness [0.8,0.4]; darker tones are more saturated.
func SkinHSL(tone int) HSL {
	t := float64(SliderRange.Clamp(tone)) / 100
	return HSL{
		H: 0.05 + 0.10*t,
		S: 0.3 + 0.4*t,
		L: 0.8 - 0.4*t,
	}
}

// HairHSL maps the hair colour slider onto hue [0,0.8] at fixed saturation
// and lightness.
func HairHSL(v int) HSL {
	t := float64(SliderRange.Clamp(v)) / 100
	return HSL{H: 0.8 * t, S: 0.8, L: 0.3}
}

// SkinColor is SkinHSL in RGB.
func SkinColor(tone int) colorful.Color { return SkinHSL(tone).Color() }

// HairColor is HairHSL in RGB.
func HairColor(v int) colorful.Color { return HairHSL(v).Color() }

// Shade multiplies every channel by f; used for muscle-definition highlights.
func Shade(c colorful.Color, f float64) colorful.Color {
	return colorful.Color{R: c.R * f, G: c.G * f, B: c.B * f}.Clamped()
}
