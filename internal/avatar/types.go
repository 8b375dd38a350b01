// Package avatar holds the editor's settings model: body, face and style
// sliders, lighting parameters, partial-merge updates and the preset catalog.
package avatar

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Gender selects the per-gender proportion table used by the mesh builder.
type Gender string

const (
	Male      Gender = "male"
	Female    Gender = "female"
	NonBinary Gender = "non-binary"
)

// ParseGender accepts the canonical names, case-insensitively.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case Male, Female, NonBinary:
		return g, nil
	default:
		return "", fmt.Errorf("%w: unknown gender %q", ErrInvalid, s)
	}
}

func (g *Gender) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: gender must be a string", ErrInvalid)
	}
	parsed, err := ParseGender(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func (g *Gender) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseGender(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// HairStyle is the hair variant id shown in the style panel.
type HairStyle int

const (
	HairShort HairStyle = iota + 1
	HairLong
	HairBun
	HairMohawk
)

const (
	minHairStyle = HairShort
	maxHairStyle = HairMohawk
)

func (h HairStyle) String() string {
	switch h {
	case HairShort:
		return "short"
	case HairLong:
		return "long"
	case HairBun:
		return "bun"
	case HairMohawk:
		return "mohawk"
	default:
		return fmt.Sprintf("hair(%d)", int(h))
	}
}

// Settings is one avatar configuration. It is a flat value type: copying it
// yields an independent snapshot.
type Settings struct {
	Gender          Gender    `json:"gender" yaml:"gender"`
	Height          int       `json:"height" yaml:"height"`
	Muscle          int       `json:"muscle" yaml:"muscle"`
	BodyFat         int       `json:"bodyFat" yaml:"bodyFat"`
	ShoulderWidth   int       `json:"shoulderWidth" yaml:"shoulderWidth"`
	WaistSize       int       `json:"waistSize" yaml:"waistSize"`
	SkinTone        int       `json:"skinTone" yaml:"skinTone"`
	FacialStructure int       `json:"facialStructure" yaml:"facialStructure"`
	EyeSize         int       `json:"eyeSize" yaml:"eyeSize"`
	NoseSize        int       `json:"noseSize" yaml:"noseSize"`
	MouthSize       int       `json:"mouthSize" yaml:"mouthSize"`
	HairStyle       HairStyle `json:"hairStyle" yaml:"hairStyle"`
	HairColor       int       `json:"hairColor" yaml:"hairColor"`
}

// Patch is a partial update of Settings. Nil fields are left unchanged.
type Patch struct {
	Gender          *Gender    `json:"gender,omitempty" yaml:"gender,omitempty"`
	Height          *int       `json:"height,omitempty" yaml:"height,omitempty"`
	Muscle          *int       `json:"muscle,omitempty" yaml:"muscle,omitempty"`
	BodyFat         *int       `json:"bodyFat,omitempty" yaml:"bodyFat,omitempty"`
	ShoulderWidth   *int       `json:"shoulderWidth,omitempty" yaml:"shoulderWidth,omitempty"`
	WaistSize       *int       `json:"waistSize,omitempty" yaml:"waistSize,omitempty"`
	SkinTone        *int       `json:"skinTone,omitempty" yaml:"skinTone,omitempty"`
	FacialStructure *int       `json:"facialStructure,omitempty" yaml:"facialStructure,omitempty"`
	EyeSize         *int       `json:"eyeSize,omitempty" yaml:"eyeSize,omitempty"`
	NoseSize        *int       `json:"noseSize,omitempty" yaml:"noseSize,omitempty"`
	MouthSize       *int       `json:"mouthSize,omitempty" yaml:"mouthSize,omitempty"`
	HairStyle       *HairStyle `json:"hairStyle,omitempty" yaml:"hairStyle,omitempty"`
	HairColor       *int       `json:"hairColor,omitempty" yaml:"hairColor,omitempty"`
}

// Lighting describes the preview lights.
type Lighting struct {
	AmbientIntensity     float64    `json:"ambientIntensity" yaml:"ambientIntensity"`
	DirectionalIntensity float64    `json:"directionalIntensity" yaml:"directionalIntensity"`
	DirectionalPosition  [3]float64 `json:"directionalPosition" yaml:"directionalPosition"`
	EnvironmentIntensity float64    `json:"environmentIntensity" yaml:"environmentIntensity"`
	Shadows              bool       `json:"shadows" yaml:"shadows"`
}

// LightingPatch is a partial update of Lighting.
type LightingPatch struct {
	AmbientIntensity     *float64    `json:"ambientIntensity,omitempty" yaml:"ambientIntensity,omitempty"`
	DirectionalIntensity *float64    `json:"directionalIntensity,omitempty" yaml:"directionalIntensity,omitempty"`
	DirectionalPosition  *[3]float64 `json:"directionalPosition,omitempty" yaml:"directionalPosition,omitempty"`
	EnvironmentIntensity *float64    `json:"environmentIntensity,omitempty" yaml:"environmentIntensity,omitempty"`
	Shadows              *bool       `json:"shadows,omitempty" yaml:"shadows,omitempty"`
}
