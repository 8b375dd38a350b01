// Package mesh turns avatar settings into a renderer-agnostic scene: an
// ordered list of primitive shapes with transforms and materials.
package mesh

import "github.com/go-gl/mathgl/mgl64"

// Kind is a primitive geometry type understood by the scene-graph renderer.
type Kind string

const (
	Sphere   Kind = "sphere"
	Box      Kind = "box"
	Cylinder Kind = "cylinder"
	Capsule  Kind = "capsule"
	Cone     Kind = "cone"
)

// Part names the body part a shape belongs to.
type Part string

const (
	PartHead    Part = "head"
	PartEye     Part = "eye"
	PartNose    Part = "nose"
	PartMouth   Part = "mouth"
	PartHair    Part = "hair"
	PartNeck    Part = "neck"
	PartTorso   Part = "torso"
	PartWaist   Part = "waist"
	PartArm     Part = "arm"
	PartForearm Part = "forearm"
	PartHand    Part = "hand"
	PartLeg     Part = "leg"
	PartCalf    Part = "calf"
	PartFoot    Part = "foot"
	PartChest   Part = "chest"
	PartAbs     Part = "abs"
	PartBicep   Part = "bicep"
	PartQuad    Part = "quadricep"
)

// Definition reports whether p is a muscle-definition highlight rather than
// part of the fixed body topology.
func (p Part) Definition() bool {
	switch p {
	case PartChest, PartAbs, PartBicep, PartQuad:
		return true
	}
	return false
}

// Dimensions carries the geometry parameters relevant to a shape's Kind:
// Radius for spheres and cones, Radius+Length for capsules (Length is the
// straight section), RadiusTop/RadiusBottom/Height for cylinders,
// Width/Height/Depth for boxes and Height for cones.
type Dimensions struct {
	Radius       float64 `json:"radius,omitempty"`
	RadiusTop    float64 `json:"radiusTop,omitempty"`
	RadiusBottom float64 `json:"radiusBottom,omitempty"`
	Width        float64 `json:"width,omitempty"`
	Height       float64 `json:"height,omitempty"`
	Depth        float64 `json:"depth,omitempty"`
	Length       float64 `json:"length,omitempty"`
}

// Transform is a shape's local transform. Rotation is XYZ Euler radians.
type Transform struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"`
	Scale    mgl64.Vec3 `json:"scale"`
}

// Shape is one primitive in the scene.
type Shape struct {
	Name       string     `json:"name"`
	Part       Part       `json:"part"`
	Kind       Kind       `json:"kind"`
	Dimensions Dimensions `json:"dimensions"`
	Transform  Transform  `json:"transform"`
	Color      string     `json:"color"`
	Roughness  float64    `json:"roughness"`
	Metalness  float64    `json:"metalness"`
}

// Scene is the full declarative description of one avatar. It is rebuilt
// from scratch on every settings change.
type Scene struct {
	Shapes []Shape `json:"shapes"`
	Scales Scales  `json:"scales"`
}

// ByPart returns the shapes belonging to p, in scene order.
func (s Scene) ByPart(p Part) []Shape {
	var out []Shape
	for _, sh := range s.Shapes {
		if sh.Part == p {
			out = append(out, sh)
		}
	}
	return out
}

// Bounds returns a conservative axis-aligned box around every shape.
func (s Scene) Bounds() (lo, hi mgl64.Vec3) {
	first := true
	for _, sh := range s.Shapes {
		r := sh.extent()
		p := sh.Transform.Position
		for i := 0; i < 3; i++ {
			if first || p[i]-r < lo[i] {
				lo[i] = p[i] - r
			}
			if first || p[i]+r > hi[i] {
				hi[i] = p[i] + r
			}
		}
		first = false
	}
	return lo, hi
}

// extent is a bounding radius of the shape after scaling.
func (sh Shape) extent() float64 {
	d := sh.Dimensions
	var r float64
	switch sh.Kind {
	case Sphere:
		r = d.Radius
	case Box:
		r = mgl64.Vec3{d.Width, d.Height, d.Depth}.Len() / 2
	case Cylinder:
		r = mgl64.Vec2{max(d.RadiusTop, d.RadiusBottom), d.Height / 2}.Len()
	case Capsule:
		r = d.Radius + d.Length/2
	case Cone:
		r = mgl64.Vec2{d.Radius, d.Height / 2}.Len()
	}
	sc := sh.Transform.Scale
	return r * max(sc[0], sc[1], sc[2])
}
