// Package render turns a scene into triangles and rasterizes them in
// software. Image exports, saved-avatar thumbnails and the 3D file encoders
// all go through it.
package render

import (
	"avatarstudio/internal/mesh"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultDetail is the number of radial segments used for curved primitives.
const DefaultDetail = 24

// minDetail keeps curved primitives closed.
const minDetail = 6

// Vertex is a world-space vertex with a unit normal.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Mesh is one tessellated shape. Indices are counter-clockwise triangles
// when seen from outside.
type Mesh struct {
	Name      string
	Part      mesh.Part
	Color     colorful.Color
	Roughness float32
	Metalness float32
	Vertices  []Vertex
	Indices   []uint32
}

// Bounds returns the axis-aligned box around every vertex.
func (m Mesh) Bounds() (lo, hi mgl32.Vec3) {
	for i, v := range m.Vertices {
		for k := 0; k < 3; k++ {
			if i == 0 || v.Position[k] < lo[k] {
				lo[k] = v.Position[k]
			}
			if i == 0 || v.Position[k] > hi[k] {
				hi[k] = v.Position[k]
			}
		}
	}
	return lo, hi
}

// TessellateScene tessellates every shape in scene order.
func TessellateScene(sc mesh.Scene, detail int) []Mesh {
	out := make([]Mesh, 0, len(sc.Shapes))
	for _, sh := range sc.Shapes {
		out = append(out, Tessellate(sh, detail))
	}
	return out
}

// Tessellate builds the triangles of sh in world space.
func Tessellate(sh mesh.Shape, detail int) Mesh {
	if detail < minDetail {
		detail = minDetail
	}
	d := sh.Dimensions
	var local []Vertex
	var idx []uint32
	switch sh.Kind {
	case mesh.Sphere:
		local, idx = sphere(f32(d.Radius), 0, detail)
	case mesh.Capsule:
		local, idx = sphere(f32(d.Radius), f32(d.Length), detail)
	case mesh.Box:
		local, idx = box(f32(d.Width), f32(d.Height), f32(d.Depth))
	case mesh.Cylinder:
		local, idx = cylinder(f32(d.RadiusTop), f32(d.RadiusBottom), f32(d.Height), detail)
	case mesh.Cone:
		local, idx = cylinder(0, f32(d.Radius), f32(d.Height), detail)
	}

	model := ModelMatrix(sh.Transform)
	normalMat := model.Mat3().Inv().Transpose()
	verts := make([]Vertex, len(local))
	for i, v := range local {
		verts[i] = Vertex{
			Position: model.Mul4x1(v.Position.Vec4(1)).Vec3(),
			Normal:   normalMat.Mul3x1(v.Normal).Normalize(),
		}
	}

	c, err := colorful.Hex(sh.Color)
	if err != nil {
		c = colorful.Color{R: 0.5, G: 0.5, B: 0.5}
	}
	return Mesh{
		Name:      sh.Name,
		Part:      sh.Part,
		Color:     c,
		Roughness: f32(sh.Roughness),
		Metalness: f32(sh.Metalness),
		Vertices:  verts,
		Indices:   idx,
	}
}

// ModelMatrix composes translate · rotateX · rotateY · rotateZ · scale.
func ModelMatrix(tr mesh.Transform) mgl32.Mat4 {
	p, r, s := tr.Position, tr.Rotation, tr.Scale
	return mgl32.Translate3D(f32(p[0]), f32(p[1]), f32(p[2])).
		Mul4(mgl32.HomogRotate3DX(f32(r[0]))).
		Mul4(mgl32.HomogRotate3DY(f32(r[1]))).
		Mul4(mgl32.HomogRotate3DZ(f32(r[2]))).
		Mul4(mgl32.Scale3D(f32(s[0]), f32(s[1]), f32(s[2])))
}

func f32(v float64) float32 { return float32(v) }

// sphere builds a UV sphere. A positive length splits the hemispheres apart
// along Y, giving a capsule whose straight section is length long.
func sphere(radius, length float32, seg int) ([]Vertex, []uint32) {
	rings := seg / 2
	if rings%2 == 1 {
		rings++
	}
	var thetas, offsets []float32
	for k := 0; k <= rings; k++ {
		theta := float32(k) / float32(rings) * math32.Pi
		off := float32(0)
		if length > 0 {
			off = length / 2
			if k > rings/2 {
				off = -length / 2
			}
		}
		thetas = append(thetas, theta)
		offsets = append(offsets, off)
		// The equator is emitted twice for capsules so the straight band
		// has its own pair of rows.
		if length > 0 && k == rings/2 {
			thetas = append(thetas, theta)
			offsets = append(offsets, -length/2)
		}
	}

	var verts []Vertex
	for row, theta := range thetas {
		st, ct := math32.Sin(theta), math32.Cos(theta)
		for ix := 0; ix <= seg; ix++ {
			phi := float32(ix) / float32(seg) * 2 * math32.Pi
			n := mgl32.Vec3{-math32.Cos(phi) * st, ct, math32.Sin(phi) * st}
			verts = append(verts, Vertex{
				Position: n.Mul(radius).Add(mgl32.Vec3{0, offsets[row], 0}),
				Normal:   n,
			})
		}
	}

	stride := uint32(seg + 1)
	last := len(thetas) - 2
	var idx []uint32
	for row := 0; row <= last; row++ {
		for ix := 0; ix < seg; ix++ {
			a := uint32(row)*stride + uint32(ix) + 1
			b := uint32(row)*stride + uint32(ix)
			c := uint32(row+1)*stride + uint32(ix)
			d := uint32(row+1)*stride + uint32(ix) + 1
			if row != 0 {
				idx = append(idx, a, b, d)
			}
			if row != last {
				idx = append(idx, b, c, d)
			}
		}
	}
	return verts, idx
}

// box builds an axis-aligned box with flat faces.
func box(w, h, d float32) ([]Vertex, []uint32) {
	x := mgl32.Vec3{w / 2, 0, 0}
	y := mgl32.Vec3{0, h / 2, 0}
	z := mgl32.Vec3{0, 0, d / 2}
	// Each face is (normal offset, u, v) with u × v pointing outward.
	faces := [6][3]mgl32.Vec3{
		{x, y, z},
		{x.Mul(-1), z, y},
		{y, z, x},
		{y.Mul(-1), x, z},
		{z, x, y},
		{z.Mul(-1), y, x},
	}
	var verts []Vertex
	var idx []uint32
	for _, f := range faces {
		c, u, v := f[0], f[1], f[2]
		n := c.Normalize()
		base := uint32(len(verts))
		for _, corner := range [4]mgl32.Vec3{
			c.Sub(u).Sub(v),
			c.Add(u).Sub(v),
			c.Add(u).Add(v),
			c.Sub(u).Add(v),
		} {
			verts = append(verts, Vertex{Position: corner, Normal: n})
		}
		idx = append(idx, base, base+1, base+2, base, base+2, base+3)
	}
	return verts, idx
}

// cylinder builds a capped (possibly tapered) cylinder centred on the
// origin. A zero top radius gives a cone.
func cylinder(top, bottom, height float32, seg int) ([]Vertex, []uint32) {
	hh := height / 2
	slope := (bottom - top) / height
	var verts []Vertex
	for row, r := range [2]float32{top, bottom} {
		y := hh
		if row == 1 {
			y = -hh
		}
		for ix := 0; ix <= seg; ix++ {
			theta := float32(ix) / float32(seg) * 2 * math32.Pi
			s, c := math32.Sin(theta), math32.Cos(theta)
			verts = append(verts, Vertex{
				Position: mgl32.Vec3{r * s, y, r * c},
				Normal:   mgl32.Vec3{s, slope, c}.Normalize(),
			})
		}
	}
	stride := uint32(seg + 1)
	var idx []uint32
	for ix := uint32(0); ix < uint32(seg); ix++ {
		a, b := ix, stride+ix
		c, d := stride+ix+1, ix+1
		idx = append(idx, a, b, d, b, c, d)
	}

	addCap := func(r, y float32, up bool) {
		if r <= 0 {
			return
		}
		n := mgl32.Vec3{0, 1, 0}
		if !up {
			n = mgl32.Vec3{0, -1, 0}
		}
		center := uint32(len(verts))
		verts = append(verts, Vertex{Position: mgl32.Vec3{0, y, 0}, Normal: n})
		ring := uint32(len(verts))
		for ix := 0; ix <= seg; ix++ {
			theta := float32(ix) / float32(seg) * 2 * math32.Pi
			verts = append(verts, Vertex{
				Position: mgl32.Vec3{r * math32.Sin(theta), y, r * math32.Cos(theta)},
				Normal:   n,
			})
		}
		for ix := uint32(0); ix < uint32(seg); ix++ {
			if up {
				idx = append(idx, ring+ix, ring+ix+1, center)
			} else {
				idx = append(idx, ring+ix+1, ring+ix, center)
			}
		}
	}
	addCap(top, hh, true)
	addCap(bottom, -hh, false)
	return verts, idx
}
