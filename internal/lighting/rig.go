// Package lighting converts the editor's lighting settings into light
// descriptors a scene-graph renderer can consume directly.
package lighting

import (
	"avatarstudio/internal/avatar"

	"github.com/go-gl/mathgl/mgl32"
)

// Shadow map resolution used when shadows are enabled.
const shadowMapSize = 1024

// Ambient is a uniform fill light.
type Ambient struct {
	Color     mgl32.Vec3 `json:"color"`
	Intensity float32    `json:"intensity"`
}

// Directional is the key light. Direction points from the light toward the
// origin and is normalized.
type Directional struct {
	Color         mgl32.Vec3 `json:"color"`
	Position      mgl32.Vec3 `json:"position"`
	Direction     mgl32.Vec3 `json:"direction"`
	Intensity     float32    `json:"intensity"`
	CastShadow    bool       `json:"castShadow"`
	ShadowMapSize int        `json:"shadowMapSize,omitempty"`
}

// Environment scales image-based reflections.
type Environment struct {
	Preset    string  `json:"preset"`
	Intensity float32 `json:"intensity"`
}

// Rig is the full set of lights for one preview.
type Rig struct {
	Ambient     Ambient     `json:"ambient"`
	Directional Directional `json:"directional"`
	Environment Environment `json:"environment"`
}

var (
	ambientColor = mgl32.Vec3{0.95, 0.95, 1.0}
	keyColor     = mgl32.Vec3{1.0, 0.98, 0.95}
	defaultDir   = mgl32.Vec3{-1, -1, -1}.Normalize()
)

// NewRig maps lighting settings to light descriptors.
func NewRig(l avatar.Lighting) Rig {
	l = l.Clamp()
	pos := mgl32.Vec3{
		float32(l.DirectionalPosition[0]),
		float32(l.DirectionalPosition[1]),
		float32(l.DirectionalPosition[2]),
	}
	dir := defaultDir
	// A light sitting at the origin has no direction; keep the default.
	if pos.Len() > 1e-6 {
		dir = pos.Mul(-1).Normalize()
	}
	r := Rig{
		Ambient: Ambient{Color: ambientColor, Intensity: float32(l.AmbientIntensity)},
		Directional: Directional{
			Color:      keyColor,
			Position:   pos,
			Direction:  dir,
			Intensity:  float32(l.DirectionalIntensity),
			CastShadow: l.Shadows,
		},
		Environment: Environment{Preset: "studio", Intensity: float32(l.EnvironmentIntensity)},
	}
	if l.Shadows {
		r.Directional.ShadowMapSize = shadowMapSize
	}
	return r
}

// Shade returns the lit intensity (before albedo) of a surface with the given
// unit normal: ambient plus Lambert diffuse from the key light, with the
// environment term adding a soft sky fill on upward-facing surfaces.
func (r Rig) Shade(normal mgl32.Vec3) float32 {
	toLight := r.Directional.Direction.Mul(-1)
	diffuse := normal.Dot(toLight)
	if diffuse < 0 {
		diffuse = 0
	}
	sky := 0.5 + 0.5*normal.Y()
	return r.Ambient.Intensity*0.6 + diffuse*r.Directional.Intensity*0.8 + sky*r.Environment.Intensity*0.15
}
