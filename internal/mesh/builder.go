package mesh

import (
	"fmt"
	"math"

	"avatarstudio/internal/avatar"

	"github.com/go-gl/mathgl/mgl64"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// minScale keeps every derived scale factor strictly positive even if the
// slider ranges are widened.
const minScale = 0.05

// Scales are the slider-derived multipliers every shape dimension is built from.
type Scales struct {
	Height      float64     `json:"height"`
	Muscle      float64     `json:"muscle"`
	BodyFat     float64     `json:"bodyFat"`
	Shoulder    float64     `json:"shoulder"`
	Waist       float64     `json:"waist"`
	Proportions Proportions `json:"proportions"`
}

// Proportions are the fixed per-gender multipliers.
type Proportions struct {
	ShoulderBonus  float64 `json:"shoulderBonus"`
	WaistReduction float64 `json:"waistReduction"`
	MuscleBonus    float64 `json:"muscleBonus"`
	HipReduction   float64 `json:"hipReduction"`
}

// ProportionsFor returns the multiplier table entry for g.
func ProportionsFor(g avatar.Gender) Proportions {
	switch g {
	case avatar.Female:
		return Proportions{ShoulderBonus: 0.90, WaistReduction: 0.85, MuscleBonus: 0.85, HipReduction: 1.10}
	case avatar.NonBinary:
		return Proportions{ShoulderBonus: 1.00, WaistReduction: 0.93, MuscleBonus: 1.00, HipReduction: 1.02}
	case avatar.Male:
		return Proportions{ShoulderBonus: 1.10, WaistReduction: 1.00, MuscleBonus: 1.10, HipReduction: 0.95}
	default:
		return ProportionsFor(avatar.Male)
	}
}

// ScalesFor computes the linear scale scalars of s.
func ScalesFor(s avatar.Settings) Scales {
	return Scales{
		Height:      floor(float64(s.Height) / 180),
		Muscle:      floor(1 + float64(s.Muscle-50)*0.004),
		BodyFat:     floor(1 + float64(s.BodyFat-20)*0.003),
		Shoulder:    floor(1 + float64(s.ShoulderWidth-50)*0.003),
		Waist:       floor(1 + float64(s.WaistSize-50)*0.002),
		Proportions: ProportionsFor(s.Gender),
	}
}

// Effective shoulder, waist, muscle and hip factors after the gender table.
func (sc Scales) shoulder() float64 { return floor(sc.Shoulder * sc.Proportions.ShoulderBonus) }
func (sc Scales) waist() float64 { return floor(sc.Waist * sc.Proportions.WaistReduction) }
func (sc Scales) muscle() float64 { return floor(sc.Muscle * sc.Proportions.MuscleBonus) }
func (sc Scales) hip() float64 { return floor(sc.BodyFat * sc.Proportions.HipReduction) }

func floor(v float64) float64 {
	if math.IsNaN(v) || v < minScale {
		return minScale
	}
	return v
}

// Definition thresholds.
const (
	chestMuscle    = 30
	absMuscle      = 40
	absBodyFat     = 25
	bicepMuscle    = 45
	quadMuscle     = 55
	quadBodyFat    = 30
	chestShade     = 0.95
	absShade       = 0.92
	bicepShade     = 0.94
	quadShade      = 0.96
	skinRoughness  = 0.7
	hairRoughness  = 0.9
	headBaseRadius = 0.12
)

// irisColor is the fixed eye colour.
var irisColor = colorful.Color{R: 0.23, G: 0.16, B: 0.10}

// builder accumulates shapes for one Build call.
type builder struct {
	sc     Scales
	s      avatar.Settings
	skin   colorful.Color
	hair   colorful.Color
	shapes []Shape
}

// Build maps settings to a scene. It is pure and total: identical settings
// always give identical scenes and every in-range input yields valid geometry.
func Build(s avatar.Settings) Scene {
	s = s.Clamp()
	b := &builder{
		sc:   ScalesFor(s),
		s:    s,
		skin: avatar.SkinColor(s.SkinTone),
		hair: avatar.HairColor(s.HairColor),
	}
	b.head()
	b.hairVariant()
	b.body()
	b.definition()
	return Scene{Shapes: b.shapes, Scales: b.sc}
}

func (b *builder) add(sh Shape) {
	if sh.Transform.Scale == (mgl64.Vec3{}) {
		sh.Transform.Scale = mgl64.Vec3{1, 1, 1}
	}
	if sh.Roughness == 0 {
		sh.Roughness = skinRoughness
	}
	b.shapes = append(b.shapes, sh)
}

// facial is the head scale factor from the facial structure slider.
func (b *builder) facial() float64 {
	return 1 + float64(b.s.FacialStructure)*0.001
}

func (b *builder) headRadius() float64 {
	return headBaseRadius * b.sc.Height * b.facial()
}

func (b *builder) head() {
	h := b.sc.Height
	f := b.facial()
	headR := b.headRadius()
	headY := 1.62 * h

	b.add(Shape{
		Name:       "head",
		Part:       PartHead,
		Kind:       Sphere,
		Dimensions: Dimensions{Radius: headBaseRadius},
		Transform: Transform{
			Position: mgl64.Vec3{0, headY, 0},
			Scale:    mgl64.Vec3{h * f, h * f, h * f},
		},
		Color: b.skin.Hex(),
	})

	eyeR := 0.016 * h * (0.75 + float64(b.s.EyeSize)*0.005)
	for _, side := range sides {
		x := side.sign * 0.042 * h * f
		z := headR * 0.88
		b.add(Shape{
			Name:       "eye_" + side.name,
			Part:       PartEye,
			Kind:       Sphere,
			Dimensions: Dimensions{Radius: eyeR},
			Transform:  Transform{Position: mgl64.Vec3{x, 1.64 * h, z}},
			Color:      "#f5f5f0",
			Roughness:  0.1,
		})
		b.add(Shape{
			Name:       "iris_" + side.name,
			Part:       PartEye,
			Kind:       Sphere,
			Dimensions: Dimensions{Radius: eyeR * 0.55},
			Transform:  Transform{Position: mgl64.Vec3{x, 1.64 * h, z + eyeR*0.7}},
			Color:      irisColor.Hex(),
			Roughness:  0.2,
		})
	}

	nose := 0.7 + float64(b.s.NoseSize)*0.006
	b.add(Shape{
		Name:       "nose",
		Part:       PartNose,
		Kind:       Cone,
		Dimensions: Dimensions{Radius: 0.014 * h * nose, Height: 0.045 * h * nose},
		Transform: Transform{
			Position: mgl64.Vec3{0, 1.605 * h, headR * 0.95},
			Rotation: mgl64.Vec3{math.Pi / 2, 0, 0},
		},
		Color: b.skin.Hex(),
	})

	mouth := 0.6 + float64(b.s.MouthSize)*0.008
	lips := b.skin.BlendRgb(colorful.Color{R: 0.7, G: 0.25, B: 0.25}, 0.35)
	b.add(Shape{
		Name:       "mouth",
		Part:       PartMouth,
		Kind:       Box,
		Dimensions: Dimensions{Width: 0.045 * h * mouth, Height: 0.01 * h, Depth: 0.012 * h},
		Transform:  Transform{Position: mgl64.Vec3{0, 1.565 * h, headR * 0.85}},
		Color:      lips.Clamped().Hex(),
	})
}

// hairVariant emits the shapes of the selected hair style. Adding a style
// means adding a HairStyle constant and a case here; unknown styles get the
// short cap.
func (b *builder) hairVariant() {
	h := b.sc.Height
	headR := b.headRadius()
	headY := 1.62 * h
	color := b.hair.Hex()

	crown := Shape{
		Name:       "hair_cap",
		Part:       PartHair,
		Kind:       Sphere,
		Dimensions: Dimensions{Radius: headR * 1.04},
		Transform: Transform{
			Position: mgl64.Vec3{0, headY + headR*0.3, -headR * 0.05},
			Scale:    mgl64.Vec3{1, 0.65, 1.05},
		},
		Color:     color,
		Roughness: hairRoughness,
	}

	switch b.s.HairStyle {
	case avatar.HairShort:
		b.add(crown)
	case avatar.HairLong:
		b.add(crown)
		b.add(Shape{
			Name:       "hair_back",
			Part:       PartHair,
			Kind:       Box,
			Dimensions: Dimensions{Width: headR * 2, Height: 0.32 * h, Depth: headR * 0.6},
			Transform:  Transform{Position: mgl64.Vec3{0, 1.5 * h, -headR * 0.55}},
			Color:      color,
			Roughness:  hairRoughness,
		})
	case avatar.HairBun:
		b.add(crown)
		b.add(Shape{
			Name:       "hair_bun",
			Part:       PartHair,
			Kind:       Sphere,
			Dimensions: Dimensions{Radius: headR * 0.45},
			Transform:  Transform{Position: mgl64.Vec3{0, headY + headR*0.55, -headR * 0.9}},
			Color:      color,
			Roughness:  hairRoughness,
		})
	case avatar.HairMohawk:
		b.add(Shape{
			Name:       "hair_crest",
			Part:       PartHair,
			Kind:       Box,
			Dimensions: Dimensions{Width: headR * 0.35, Height: headR * 0.5, Depth: headR * 1.8},
			Transform:  Transform{Position: mgl64.Vec3{0, headY + headR*0.85, 0}},
			Color:      color,
			Roughness:  hairRoughness,
		})
	default:
		b.add(crown)
	}
}

var sides = []struct {
	name string
	sign float64
}{
	{"left", -1},
	{"right", 1},
}

// layout holds the body measurements shared between the body and the
// definition shapes.
type layout struct {
	torsoW, torsoD float64
	armX, armR     float64
	legX, thighR   float64
}

func (b *builder) layout() layout {
	h := b.sc.Height
	m := b.sc.muscle()
	torsoW := 0.34 * h * b.sc.shoulder() * m
	armR := 0.042 * h * m * b.sc.BodyFat
	return layout{
		torsoW: torsoW,
		torsoD: 0.2 * h * b.sc.BodyFat * m,
		armR:   armR,
		armX:   torsoW/2 + armR + 0.01*h,
		legX:   0.085 * h * b.sc.hip(),
		thighR: 0.07 * h * m * b.sc.hip(),
	}
}

func (b *builder) body() {
	h := b.sc.Height
	m := b.sc.muscle()
	fat := b.sc.BodyFat
	lo := b.layout()
	skin := b.skin.Hex()

	neckR := 0.05 * h * m
	b.add(Shape{
		Name:       "neck",
		Part:       PartNeck,
		Kind:       Cylinder,
		Dimensions: Dimensions{RadiusTop: neckR, RadiusBottom: neckR, Height: 0.1 * h},
		Transform:  Transform{Position: mgl64.Vec3{0, 1.48 * h, 0}},
		Color:      skin,
	})
	b.add(Shape{
		Name:       "torso",
		Part:       PartTorso,
		Kind:       Box,
		Dimensions: Dimensions{Width: lo.torsoW, Height: 0.32 * h, Depth: lo.torsoD},
		Transform:  Transform{Position: mgl64.Vec3{0, 1.27 * h, 0}},
		Color:      skin,
	})
	b.add(Shape{
		Name: "waist",
		Part: PartWaist,
		Kind: Cylinder,
		Dimensions: Dimensions{
			RadiusTop:    0.15 * h * b.sc.waist() * fat,
			RadiusBottom: 0.155 * h * b.sc.hip(),
			Height:       0.2 * h,
		},
		Transform: Transform{
			Position: mgl64.Vec3{0, 1.01 * h, 0},
			Scale:    mgl64.Vec3{1, 1, 0.7},
		},
		Color: skin,
	})

	for _, side := range sides {
		x := side.sign * lo.armX
		b.add(Shape{
			Name:       "arm_" + side.name,
			Part:       PartArm,
			Kind:       Capsule,
			Dimensions: Dimensions{Radius: lo.armR, Length: 0.2 * h},
			Transform:  Transform{Position: mgl64.Vec3{x, 1.25 * h, 0}},
			Color:      skin,
		})
		b.add(Shape{
			Name:       "forearm_" + side.name,
			Part:       PartForearm,
			Kind:       Capsule,
			Dimensions: Dimensions{Radius: 0.035 * h * m * fat, Length: 0.2 * h},
			Transform:  Transform{Position: mgl64.Vec3{x, 0.97 * h, 0}},
			Color:      skin,
		})
		b.add(Shape{
			Name:       "hand_" + side.name,
			Part:       PartHand,
			Kind:       Sphere,
			Dimensions: Dimensions{Radius: 0.042 * h},
			Transform: Transform{
				Position: mgl64.Vec3{x, 0.78 * h, 0},
				Scale:    mgl64.Vec3{0.75, 1.2, 0.45},
			},
			Color: skin,
		})
	}

	for _, side := range sides {
		x := side.sign * lo.legX
		b.add(Shape{
			Name:       "leg_" + side.name,
			Part:       PartLeg,
			Kind:       Capsule,
			Dimensions: Dimensions{Radius: lo.thighR, Length: 0.3 * h},
			Transform:  Transform{Position: mgl64.Vec3{x, 0.72 * h, 0}},
			Color:      skin,
		})
		b.add(Shape{
			Name:       "calf_" + side.name,
			Part:       PartCalf,
			Kind:       Capsule,
			Dimensions: Dimensions{Radius: 0.05 * h * m * fat, Length: 0.3 * h},
			Transform:  Transform{Position: mgl64.Vec3{x, 0.3 * h, 0}},
			Color:      skin,
		})
		b.add(Shape{
			Name:       "foot_" + side.name,
			Part:       PartFoot,
			Kind:       Box,
			Dimensions: Dimensions{Width: 0.09 * h, Height: 0.05 * h, Depth: 0.24 * h},
			Transform:  Transform{Position: mgl64.Vec3{x, 0.025 * h, 0.05 * h}},
			Color:      skin,
		})
	}
}

// definition emits the shaded highlight shapes that appear once muscle and
// body fat cross their thresholds.
func (b *builder) definition() {
	h := b.sc.Height
	m := b.sc.muscle()
	lo := b.layout()
	muscle := b.s.Muscle
	fat := b.s.BodyFat

	if muscle > chestMuscle {
		color := avatar.Shade(b.skin, chestShade).Hex()
		depth := 0.55 + float64(muscle-chestMuscle)*0.004
		for _, side := range sides {
			b.add(Shape{
				Name:       "chest_" + side.name,
				Part:       PartChest,
				Kind:       Sphere,
				Dimensions: Dimensions{Radius: 0.075 * h * b.sc.shoulder()},
				Transform: Transform{
					Position: mgl64.Vec3{side.sign * lo.torsoW * 0.24, 1.33 * h, lo.torsoD / 2},
					Scale:    mgl64.Vec3{1, depth, 0.35},
				},
				Color: color,
			})
		}
	}

	if muscle > absMuscle && fat < absBodyFat {
		color := avatar.Shade(b.skin, absShade).Hex()
		for row, y := range []float64{1.21, 1.16, 1.11} {
			for _, side := range sides {
				b.add(Shape{
					Name:       fmt.Sprintf("abs_%d_%s", row+1, side.name),
					Part:       PartAbs,
					Kind:       Box,
					Dimensions: Dimensions{Width: 0.05 * h, Height: 0.045 * h, Depth: 0.015 * h},
					Transform:  Transform{Position: mgl64.Vec3{side.sign * 0.03 * h, y * h, lo.torsoD / 2}},
					Color:      color,
				})
			}
		}
	}

	if muscle > bicepMuscle {
		color := avatar.Shade(b.skin, bicepShade).Hex()
		for _, side := range sides {
			b.add(Shape{
				Name:       "bicep_" + side.name,
				Part:       PartBicep,
				Kind:       Sphere,
				Dimensions: Dimensions{Radius: 0.03 * h * m},
				Transform: Transform{
					Position: mgl64.Vec3{side.sign * lo.armX, 1.27 * h, lo.armR * 0.6},
					Scale:    mgl64.Vec3{1, 1.4, 1},
				},
				Color: color,
			})
		}
	}

	if muscle > quadMuscle && fat < quadBodyFat {
		color := avatar.Shade(b.skin, quadShade).Hex()
		for _, side := range sides {
			b.add(Shape{
				Name:       "quad_" + side.name,
				Part:       PartQuad,
				Kind:       Sphere,
				Dimensions: Dimensions{Radius: 0.05 * h * m},
				Transform: Transform{
					Position: mgl64.Vec3{side.sign * lo.legX, 0.75 * h, lo.thighR * 0.55},
					Scale:    mgl64.Vec3{0.9, 1.6, 0.8},
				},
				Color: color,
			})
		}
	}
}
