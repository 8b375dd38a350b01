package display

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"avatarstudio/internal/avatar"
	"avatarstudio/internal/mesh"
)

// Rect is one schematic box in model units (metres, y up, x centred).
type Rect struct {
	Part string  `json:"part"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// Layout is the full schematic figure.
type Layout struct {
	Rects  []Rect      `json:"rects"`
	Scales mesh.Scales `json:"scales"`
}

// Base sizes at heightScale = muscleScale = 1.
const (
	headSize    = 0.24
	headBottom  = 1.50
	torsoWidth  = 0.34
	torsoHeight = 0.52
	torsoBottom = 0.95
	armWidth    = 0.09
	armHeight   = 0.62
	armBottom   = 0.83
	legWidth    = 0.12
	legHeight   = 0.95
	legGap      = 0.02
)

// Schematic lays out head, torso, arms and legs. Heights follow heightScale
// and limb/torso widths follow heightScale·muscleScale, the same factors
// mesh.Build uses.
func Schematic(s avatar.Settings) Layout {
	sc := mesh.ScalesFor(s.Clamp())
	h, m := sc.Height, sc.Muscle

	tw := torsoWidth * h * m
	aw := armWidth * h * m
	lw := legWidth * h * m
	rects := []Rect{
		{Part: "head", X: -headSize * h / 2, Y: headBottom * h, W: headSize * h, H: headSize * h},
		{Part: "torso", X: -tw / 2, Y: torsoBottom * h, W: tw, H: torsoHeight * h},
		{Part: "arm_left", X: -tw/2 - aw, Y: armBottom * h, W: aw, H: armHeight * h},
		{Part: "arm_right", X: tw / 2, Y: armBottom * h, W: aw, H: armHeight * h},
		{Part: "leg_left", X: -legGap*h - lw, Y: 0, W: lw, H: legHeight * h},
		{Part: "leg_right", X: legGap * h, Y: 0, W: lw, H: legHeight * h},
	}
	return Layout{Rects: rects, Scales: sc}
}

// Bitmap geometry: 4×4 pixel blocks on a 192×256 portrait canvas.
const (
	blockPx       = 4
	imgW, imgH    = 192, 256
	pixelsPerUnit = 100.0
)

var (
	schematicBackground = color.RGBA{0x18, 0x14, 0x28, 255}
	schematicGround     = color.RGBA{0x2d, 0x3a, 0x5c, 255}
)

// fillBlock fills one block at block coords (bx, by).
func fillBlock(img *image.RGBA, bx, by int, clr color.RGBA) {
	for dy := 0; dy < blockPx; dy++ {
		for dx := 0; dx < blockPx; dx++ {
			x := bx*blockPx + dx
			y := by*blockPx + dy
			if x >= 0 && y >= 0 && x < imgW && y < imgH {
				img.SetRGBA(x, y, clr)
			}
		}
	}
}

// fillRect snaps r to the block grid and fills it.
func fillRect(img *image.RGBA, r Rect, clr color.RGBA) {
	const groundPx = imgH - 2*blockPx
	x0 := int(math.Floor((imgW/2 + r.X*pixelsPerUnit) / blockPx))
	x1 := int(math.Ceil((imgW/2 + (r.X+r.W)*pixelsPerUnit) / blockPx))
	y0 := int(math.Floor((groundPx - (r.Y+r.H)*pixelsPerUnit) / blockPx))
	y1 := int(math.Ceil((groundPx - r.Y*pixelsPerUnit) / blockPx))
	for by := y0; by < y1; by++ {
		for bx := x0; bx < x1; bx++ {
			fillBlock(img, bx, by, clr)
		}
	}
}

// SchematicImage draws the layout as a blocky figure coloured with the
// avatar's skin and hair tones.
func SchematicImage(s avatar.Settings) *image.RGBA {
	s = s.Clamp()
	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH))
	for by := 0; by < imgH/blockPx; by++ {
		for bx := 0; bx < imgW/blockPx; bx++ {
			clr := schematicBackground
			if by >= imgH/blockPx-2 {
				clr = schematicGround
			}
			fillBlock(img, bx, by, clr)
		}
	}
	skin := rgba(avatar.SkinColor(s.SkinTone).RGB255())
	hair := rgba(avatar.HairColor(s.HairColor).RGB255())
	for _, r := range Schematic(s).Rects {
		fillRect(img, r, skin)
		if r.Part == "head" {
			// Hair band across the top quarter of the head.
			top := r
			top.H = r.H / 4
			top.Y = r.Y + r.H - top.H
			fillRect(img, top, hair)
		}
	}
	return img
}

// SchematicPNG encodes SchematicImage as PNG.
func SchematicPNG(s avatar.Settings) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, SchematicImage(s)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rgba(r, g, b uint8) color.RGBA { return color.RGBA{r, g, b, 255} }
