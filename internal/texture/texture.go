// Package texture synthesizes the procedural skin/muscle texture applied to
// the avatar body.
package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"avatarstudio/internal/avatar"
)

// Quality bounds in pixels per side.
const (
	MinQuality     = 16
	MaxQuality     = 2048
	DefaultQuality = 512
)

// Params are the avatar settings the texture depends on.
type Params struct {
	Muscle   int
	BodyFat  int
	SkinTone int
	Gender   avatar.Gender
}

// ParamsFrom extracts texture parameters from settings.
func ParamsFrom(s avatar.Settings) Params {
	return Params{Muscle: s.Muscle, BodyFat: s.BodyFat, SkinTone: s.SkinTone, Gender: s.Gender}
}

// Tuning holds the texture sliders, each 0–100.
type Tuning struct {
	MuscleIntensity int `json:"muscleIntensity"`
	SkinDetail      int `json:"skinDetail"`
	Vascularization int `json:"vascularization"`
}

// DefaultTuning is what the texture panel starts with.
func DefaultTuning() Tuning {
	return Tuning{MuscleIntensity: 50, SkinDetail: 30, Vascularization: 40}
}

// Source supplies uniform samples in [0,1). *math/rand/v2.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Zero is a Source that always returns the midpoint, producing no grain.
type Zero struct{}

func (Zero) Float64() float64 { return 0.5 }

// Gating thresholds and strengths.
const (
	definitionMuscle = 30
	vascularMuscle   = 60
	vascularBodyFat  = 15
	noiseAmplitude   = 12.0
	definitionDepth  = 40.0
	vascularDepth    = 18.0
	vascularFreq     = 60.0
	vascularCutoff   = 0.85
	fatLightening    = 0.3
)

// Synthesize renders a quality×quality RGBA texture. The only
// non-deterministic term is the skin grain drawn from src.
func Synthesize(p Params, quality int, tu Tuning, src Source) *image.RGBA {
	quality = clampInt(quality, MinQuality, MaxQuality)
	tu = tu.clamp()
	if src == nil {
		src = Zero{}
	}
	base := baseRGB(p.SkinTone)
	fat := FatSoftening(p.BodyFat)
	detail := float64(tu.SkinDetail) / 100 * noiseAmplitude

	img := image.NewRGBA(image.Rect(0, 0, quality, quality))
	for y := 0; y < quality; y++ {
		ny := float64(y) / float64(quality-1)
		for x := 0; x < quality; x++ {
			nx := float64(x) / float64(quality-1)
			def := MuscleDefinition(p, tu, nx, ny)
			vasc := VascularDetail(p, tu, nx, ny)
			noise := (src.Float64() - 0.5) * 2 * detail
			shift := -def - vasc + fat + noise
			img.SetRGBA(x, y, color.RGBA{
				R: channel(base[0] + shift),
				G: channel(base[1] + shift),
				B: channel(base[2] + shift),
				A: 255,
			})
		}
	}
	return img
}

// MuscleDefinition is the darkening applied at (nx, ny). It is zero outside
// the chest, abdominal and arm regions and whenever muscle is 30 or less.
// Chest definition is lighter for female and non-binary bodies.
func MuscleDefinition(p Params, tu Tuning, nx, ny float64) float64 {
	if p.Muscle <= definitionMuscle {
		return 0
	}
	strength := float64(p.Muscle) / 100 * float64(tu.clamp().MuscleIntensity) / 100 * definitionDepth
	var weight float64
	switch {
	case inChest(nx, ny):
		weight = chestWeight(p.Gender)
	case inAbs(nx, ny):
		// Segment the abdominals into horizontal bands.
		weight = 0.5 + 0.5*math.Abs(math.Sin(ny*math.Pi*8))
	case inArms(nx, ny):
		weight = 0.8
	}
	return strength * weight
}

// VascularDetail is the fine vein pattern. It is zero unless muscle is above
// 60 and body fat below 15.
func VascularDetail(p Params, tu Tuning, nx, ny float64) float64 {
	if p.Muscle <= vascularMuscle || p.BodyFat >= vascularBodyFat {
		return 0
	}
	if math.Sin(nx*vascularFreq)*math.Cos(ny*vascularFreq) <= vascularCutoff {
		return 0
	}
	return float64(tu.clamp().Vascularization) / 100 * vascularDepth
}

// FatSoftening is the uniform lightening contributed by body fat.
func FatSoftening(bodyFat int) float64 {
	return float64(avatar.BodyFatRange.Clamp(bodyFat)) * fatLightening
}

// chestWeight is the per-gender multiplier of pectoral definition.
func chestWeight(g avatar.Gender) float64 {
	switch g {
	case avatar.Female:
		return 0.6
	case avatar.NonBinary:
		return 0.8
	default:
		return 1
	}
}

func inChest(nx, ny float64) bool {
	return ny >= 0.3 && ny <= 0.6 && math.Abs(nx-0.5) < 0.2
}

func inAbs(nx, ny float64) bool {
	return ny >= 0.5 && ny <= 0.8 && math.Abs(nx-0.5) < 0.15
}

func inArms(nx, ny float64) bool {
	return (nx < 0.2 || nx > 0.8) && ny >= 0.2 && ny <= 0.7
}

func baseRGB(tone int) [3]float64 {
	c := avatar.SkinColor(tone)
	return [3]float64{c.R * 255, c.G * 255, c.B * 255}
}

func channel(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}

func (tu Tuning) clamp() Tuning {
	tu.MuscleIntensity = clampInt(tu.MuscleIntensity, 0, 100)
	tu.SkinDetail = clampInt(tu.SkinDetail, 0, 100)
	tu.Vascularization = clampInt(tu.Vascularization, 0, 100)
	return tu
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
