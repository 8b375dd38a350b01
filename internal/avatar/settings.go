package avatar

import "errors"

// ErrInvalid marks a settings value that cannot be decoded (as opposed to one
// that is merely out of range, which is clamped).
var ErrInvalid = errors.New("invalid avatar settings")

// Range is an inclusive integer slider range.
type Range struct {
	Min, Max int
}

// Clamp limits v to the range.
func (r Range) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Slider ranges.
var (
	HeightRange  = Range{Min: 170, Max: 210}
	BodyFatRange = Range{Min: 5, Max: 40}
	SliderRange  = Range{Min: 0, Max: 100}
	HairRange    = Range{Min: int(minHairStyle), Max: int(maxHairStyle)}
)

// Default returns the settings every new editor session starts with.
func Default() Settings {
	return Settings{
		Gender:          Male,
		Height:          180,
		Muscle:          50,
		BodyFat:         20,
		ShoulderWidth:   50,
		WaistSize:       50,
		SkinTone:        50,
		FacialStructure: 50,
		EyeSize:         50,
		NoseSize:        50,
		MouthSize:       50,
		HairStyle:       HairShort,
		HairColor:       50,
	}
}

// DefaultLighting returns the preview lighting of a new session.
func DefaultLighting() Lighting {
	return Lighting{
		AmbientIntensity:     0.5,
		DirectionalIntensity: 1.0,
		DirectionalPosition:  [3]float64{5, 5, 5},
		EnvironmentIntensity: 1.0,
		Shadows:              true,
	}
}

// Clamp forces every field into its documented range. An empty or unknown
// gender falls back to Male.
func (s Settings) Clamp() Settings {
	switch s.Gender {
	case Male, Female, NonBinary:
	default:
		s.Gender = Male
	}
	s.Height = HeightRange.Clamp(s.Height)
	s.Muscle = SliderRange.Clamp(s.Muscle)
	s.BodyFat = BodyFatRange.Clamp(s.BodyFat)
	s.ShoulderWidth = SliderRange.Clamp(s.ShoulderWidth)
	s.WaistSize = SliderRange.Clamp(s.WaistSize)
	s.SkinTone = SliderRange.Clamp(s.SkinTone)
	s.FacialStructure = SliderRange.Clamp(s.FacialStructure)
	s.EyeSize = SliderRange.Clamp(s.EyeSize)
	s.NoseSize = SliderRange.Clamp(s.NoseSize)
	s.MouthSize = SliderRange.Clamp(s.MouthSize)
	s.HairStyle = HairStyle(HairRange.Clamp(int(s.HairStyle)))
	s.HairColor = SliderRange.Clamp(s.HairColor)
	return s
}

// Apply merges p into s and clamps the result. Fields p leaves nil are
// carried over unchanged.
func (s Settings) Apply(p Patch) Settings {
	if p.Gender != nil {
		s.Gender = *p.Gender
	}
	setInt(&s.Height, p.Height)
	setInt(&s.Muscle, p.Muscle)
	setInt(&s.BodyFat, p.BodyFat)
	setInt(&s.ShoulderWidth, p.ShoulderWidth)
	setInt(&s.WaistSize, p.WaistSize)
	setInt(&s.SkinTone, p.SkinTone)
	setInt(&s.FacialStructure, p.FacialStructure)
	setInt(&s.EyeSize, p.EyeSize)
	setInt(&s.NoseSize, p.NoseSize)
	setInt(&s.MouthSize, p.MouthSize)
	if p.HairStyle != nil {
		s.HairStyle = *p.HairStyle
	}
	setInt(&s.HairColor, p.HairColor)
	return s.Clamp()
}

// AsPatch returns a patch that sets every field to the value in s.
func (s Settings) AsPatch() Patch {
	return Patch{
		Gender:          &s.Gender,
		Height:          &s.Height,
		Muscle:          &s.Muscle,
		BodyFat:         &s.BodyFat,
		ShoulderWidth:   &s.ShoulderWidth,
		WaistSize:       &s.WaistSize,
		SkinTone:        &s.SkinTone,
		FacialStructure: &s.FacialStructure,
		EyeSize:         &s.EyeSize,
		NoseSize:        &s.NoseSize,
		MouthSize:       &s.MouthSize,
		HairStyle:       &s.HairStyle,
		HairColor:       &s.HairColor,
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Clamp forces intensities to be non-negative.
func (l Lighting) Clamp() Lighting {
	l.AmbientIntensity = nonNegative(l.AmbientIntensity)
	l.DirectionalIntensity = nonNegative(l.DirectionalIntensity)
	l.EnvironmentIntensity = nonNegative(l.EnvironmentIntensity)
	return l
}

// Apply merges p into l and clamps the result.
func (l Lighting) Apply(p LightingPatch) Lighting {
	if p.AmbientIntensity != nil {
		l.AmbientIntensity = *p.AmbientIntensity
	}
	if p.DirectionalIntensity != nil {
		l.DirectionalIntensity = *p.DirectionalIntensity
	}
	if p.DirectionalPosition != nil {
		l.DirectionalPosition = *p.DirectionalPosition
	}
	if p.EnvironmentIntensity != nil {
		l.EnvironmentIntensity = *p.EnvironmentIntensity
	}
	if p.Shadows != nil {
		l.Shadows = *p.Shadows
	}
	return l.Clamp()
}

func nonNegative(v float64) float64 {
	// NaN compares false against everything; treat it as zero too.
	if !(v > 0) {
		return 0
	}
	return v
}
